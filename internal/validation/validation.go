package validation

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"github.com/sw965/mdp"
	"strings"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates the `validate` tags of v. Failures wrap mdp.ErrConfiguration.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", mdp.ErrConfiguration, err)
	}

	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() == "" {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s", fe.Namespace(), fe.Value(), fe.Tag()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s=%v fails %s=%s", fe.Namespace(), fe.Value(), fe.Tag(), fe.Param()))
		}
	}
	return fmt.Errorf("%w: %s", mdp.ErrConfiguration, strings.Join(msgs, "; "))
}
