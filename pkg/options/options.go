package options

import (
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
)

// IOptions is implemented by every option group of a fleetpeer component.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds the option group's flags to the specified FlagSet.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// ValidateStruct checks the `validate` struct tags of an option group and
// returns one error per failed field.
func ValidateStruct(o any) []error {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})

	err := validate.Struct(o)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []error{err}
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fmt.Errorf("invalid value %v for %s: failed on '%s'", fe.Value(), fe.Namespace(), fe.Tag()))
	}
	return errs
}

// ValidateAddress checks that addr is a valid host:port pair.
func ValidateAddress(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid address %q: %w", addr, err)
	}

	p, err := strconv.Atoi(port)
	if err != nil || p < 0 || p > 65535 {
		return fmt.Errorf("invalid port %q in address %q", port, addr)
	}
	return nil
}
