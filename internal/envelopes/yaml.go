package envelopes

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/cleared-dev/envelope/internal/model"
	"github.com/cleared-dev/envelope/internal/money"
)

// file is the envelopes.yaml document.
type file struct {
	Envelopes []envelopeYAML `yaml:"envelopes"`
}

type envelopeYAML struct {
	ID       string       `yaml:"id"`
	Name     string       `yaml:"name"`
	Status   string       `yaml:"status"`
	Budget   string       `yaml:"budget"`
	Currency string       `yaml:"currency"`
	Rollover rolloverYAML `yaml:"rollover"`
}

type rolloverYAML struct {
	Policy    string `yaml:"policy"`
	Cap       string `yaml:"cap,omitempty"`
	KeepRatio string `yaml:"keep_ratio,omitempty"`
}

// Marshal encodes envelopes as YAML.
func Marshal(envs []model.Envelope) ([]byte, error) {
	doc := file{Envelopes: make([]envelopeYAML, 0, len(envs))}
	for _, e := range envs {
		y := envelopeYAML{
			ID:       e.ID,
			Name:     e.Name,
			Status:   string(e.Status),
			Budget:   e.Budget.Amount().StringFixed(e.Budget.Precision()),
			Currency: e.Budget.Currency(),
		}
		switch p := e.Rollover.(type) {
		case model.ResetToZero:
			y.Rollover.Policy = p.PolicyName()
		case model.CarryOver:
			y.Rollover.Policy = p.PolicyName()
			y.Rollover.Cap = capString(p.Cap)
		case model.SinkingFund:
			y.Rollover.Policy = p.PolicyName()
			y.Rollover.Cap = capString(p.Cap)
		case model.Decay:
			y.Rollover.Policy = p.PolicyName()
			y.Rollover.KeepRatio = p.KeepRatio.String()
		default:
			return nil, fmt.Errorf("envelope %s: unsupported rollover policy %T", e.ID, p)
		}
		doc.Envelopes = append(doc.Envelopes, y)
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelopes: %w", err)
	}
	return data, nil
}

// Unmarshal decodes and validates envelopes from YAML.
func Unmarshal(data []byte) ([]model.Envelope, error) {
	var doc file
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing envelopes: %w", err)
	}
	envs := make([]model.Envelope, 0, len(doc.Envelopes))
	for i, y := range doc.Envelopes {
		e, err := y.toModel()
		if err != nil {
			return nil, fmt.Errorf("envelope %d (%s): %w", i+1, y.ID, err)
		}
		if err := model.ValidateEnvelope(e); err != nil {
			return nil, err
		}
		envs = append(envs, e)
	}
	return envs, nil
}

func (y envelopeYAML) toModel() (model.Envelope, error) {
	budget, err := money.Parse(y.Budget, y.Currency)
	if err != nil {
		return model.Envelope{}, fmt.Errorf("parsing budget: %w", err)
	}
	status := model.EnvelopeStatus(y.Status)
	if status == "" {
		status = model.EnvelopeActive
	}
	e := model.Envelope{ID: y.ID, Name: y.Name, Status: status, Budget: budget}

	parseCap := func() (*money.Money, error) {
		if y.Rollover.Cap == "" {
			return nil, nil
		}
		c, err := money.Parse(y.Rollover.Cap, y.Currency)
		if err != nil {
			return nil, fmt.Errorf("parsing cap: %w", err)
		}
		return &c, nil
	}

	switch y.Rollover.Policy {
	case "", model.ResetToZero{}.PolicyName():
		e.Rollover = model.ResetToZero{}
	case model.CarryOver{}.PolicyName():
		c, err := parseCap()
		if err != nil {
			return model.Envelope{}, err
		}
		e.Rollover = model.CarryOver{Cap: c}
	case model.SinkingFund{}.PolicyName():
		c, err := parseCap()
		if err != nil {
			return model.Envelope{}, err
		}
		e.Rollover = model.SinkingFund{Cap: c}
	case model.Decay{}.PolicyName():
		r, err := decimal.NewFromString(y.Rollover.KeepRatio)
		if err != nil {
			return model.Envelope{}, fmt.Errorf("parsing keep_ratio %q: %w", y.Rollover.KeepRatio, err)
		}
		e.Rollover = model.Decay{KeepRatio: r}
	default:
		return model.Envelope{}, fmt.Errorf("%w: unknown rollover policy %q", model.ErrInvalidEnvelope, y.Rollover.Policy)
	}
	return e, nil
}

func capString(c *money.Money) string {
	if c == nil {
		return ""
	}
	return c.Amount().StringFixed(c.Precision())
}
