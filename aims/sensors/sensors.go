// Package sensors implements ControlUnitSensorsReading, the producer AIM
// that samples the control unit sensors and publishes JSON readings.
package sensors

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	aif "github.com/goliatone/go-aif"
	"github.com/goliatone/go-aif/aim"
	"github.com/goliatone/go-aif/catalog"
	"github.com/goliatone/go-aif/runner"
)

const (
	Name        = "ControlUnitSensorsReading"
	Channel     = "SensorsDataChannel"
	DefaultRate = 100 * time.Millisecond
)

// Reading is one sample of the board sensors.
type Reading struct {
	Temperature float64    `json:"temperature"`
	Humidity    float64    `json:"humidity"`
	Pressure    float64    `json:"pressure"`
	Accel       [3]float64 `json:"accel"`
	Timestamp   int64      `json:"timestamp"`
}

// Decode parses a published reading.
func Decode(msg aif.Message) (Reading, error) {
	var r Reading
	if err := json.Unmarshal(msg.Data, &r); err != nil {
		return Reading{}, aif.CloneError(aif.ErrMalformedPayload, "decode sensor reading", err, nil)
	}
	return r, nil
}

// Sampler reads the sensors. Hardware access lives behind it.
type Sampler interface {
	Sample(ctx context.Context) (Reading, error)
}

type SamplerFunc func(ctx context.Context) (Reading, error)

func (f SamplerFunc) Sample(ctx context.Context) (Reading, error) { return f(ctx) }

// Synthetic produces a slow temperature wave around Base. It stands in for
// the board sensors on hosts without them.
type Synthetic struct {
	Base      float64
	Amplitude float64

	mu   sync.Mutex
	step int
}

func NewSynthetic() *Synthetic {
	return &Synthetic{Base: 26, Amplitude: 6}
}

func (s *Synthetic) Sample(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	s.mu.Lock()
	s.step++
	phase := float64(s.step) / 50
	s.mu.Unlock()

	return Reading{
		Temperature: s.Base + s.Amplitude*math.Sin(phase),
		Humidity:    45 + 5*math.Cos(phase),
		Pressure:    101.325,
		Accel:       [3]float64{0, 0, 9.81},
	}, nil
}

// Entry returns the catalog entry. A nil sampler uses NewSynthetic and a
// non-positive rate uses DefaultRate.
func Entry(sampler Sampler, rate time.Duration) catalog.Entry {
	if sampler == nil {
		sampler = NewSynthetic()
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	return catalog.Entry{
		Name:        Name,
		Description: "samples control unit sensors and publishes readings",
		New: func(env catalog.Env) (aim.Module, error) {
			return New(env, sampler, rate)
		},
	}
}

// New builds the producer module publishing on the workflow's
// SensorsDataChannel.
func New(env catalog.Env, sampler Sampler, rate time.Duration) (*aim.WorkerModule, error) {
	ch, ok := env.Output(Channel)
	if !ok {
		return nil, aif.CloneError(aif.ErrInvalidChannel, fmt.Sprintf("workflow has no %s", Channel), nil, map[string]any{
			"aim": env.Name,
		})
	}
	if env.Store == nil {
		return nil, aif.ErrNilStore
	}
	logger := aif.NormalizeLogger(env.Logger)

	publish := func(ctx context.Context) error {
		r, err := sampler.Sample(ctx)
		if err != nil {
			logger.Warn("sensor sample failed: %v", err)
			return nil
		}
		now := time.Now().UnixMilli()
		if r.Timestamp == 0 {
			r.Timestamp = now
		}
		data, err := json.Marshal(r)
		if err != nil {
			return err
		}
		_, err = env.Store.Publish(aif.Message{Data: data, Timestamp: now}, ch)
		return err
	}

	worker := runner.NewWorker(env.Name, runner.Every(rate, publish), runner.WithLogger(logger))
	return aim.NewWorkerModule(env.Name, worker), nil
}
