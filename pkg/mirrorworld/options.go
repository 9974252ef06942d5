package mirrorworld

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/api"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/chain"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/log"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/storage"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/surface"
	"github.com/mirrorworld-universe/mirrorworld-sdk-go/pkg/validation"
)

// Default endpoints.
const (
	DefaultAuthBaseURL = "https://auth.mirrorworld.fun"
	DefaultAPIBaseURL  = "https://api.mirrorworld.fun"
)

// ErrInvalidOptions wraps every configuration error returned by New.
var ErrInvalidOptions = errors.New("invalid options")

// Credentials log a user in with email and password at startup.
type Credentials struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// Options configure an SDK instance.
type Options struct {
	APIKey  string        `validate:"required"`
	Chain   chain.Chain   `validate:"required"`
	Network chain.Network `validate:"required"`

	// AccessToken or SecretAccessKey authenticate without a login flow. A
	// secret key also bypasses user approval of actions.
	AccessToken     string
	SecretAccessKey string
	// RefreshToken is restored at startup instead of the persisted one.
	RefreshToken         string
	AutoLoginCredentials *Credentials

	Mode      surface.Mode `validate:"omitempty,oneof=embedded popup"`
	UserAgent string

	AuthBaseURL string      `validate:"omitempty,url"`
	APIBaseURL  string      `validate:"omitempty,url"`
	Version     api.Version `validate:"omitempty,oneof=v1 v2"`

	Launcher   surface.Launcher   `validate:"-"`
	TokenStore storage.TokenStore `validate:"-"`
	Logger     log.Logger         `validate:"-"`
	// Registerer enables metrics. Nil disables them.
	Registerer prometheus.Registerer `validate:"-"`
	HTTPClient *http.Client          `validate:"-"`
	// RateLimit caps requests per second per service. Zero disables limiting.
	RateLimit rate.Limit `validate:"gte=0"`

	// Publisher, when set, receives every lifecycle event on EventsTopic.
	Publisher   message.Publisher `validate:"-"`
	EventsTopic string
	// InstanceID tags forwarded events. Empty means a random uuid.
	InstanceID string
}

func (o Options) withDefaults() Options {
	if o.AuthBaseURL == "" {
		o.AuthBaseURL = DefaultAuthBaseURL
	}
	if o.APIBaseURL == "" {
		o.APIBaseURL = DefaultAPIBaseURL
	}
	if o.Version == "" {
		o.Version = api.V2
	}
	return o
}

func (o Options) validate() (chain.Config, error) {
	if err := validation.New().Struct(o); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return chain.Config{}, fmt.Errorf("%w: %s", ErrInvalidOptions, validation.Describe(err))
		}
		return chain.Config{}, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	if o.AccessToken != "" && o.SecretAccessKey != "" {
		return chain.Config{}, fmt.Errorf("%w: AccessToken and SecretAccessKey are mutually exclusive", ErrInvalidOptions)
	}

	cfg, err := chain.NewConfig(o.Chain, o.Network)
	if err != nil {
		return chain.Config{}, fmt.Errorf("%w: %w", ErrInvalidOptions, err)
	}
	return cfg, nil
}
