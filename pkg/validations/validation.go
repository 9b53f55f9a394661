// All global custom validations in Mechat are defined here.
// These validations are allowed to be used anywhere in the application.

package validations

import (
	"Mechat/pkg/log"
	"context"
	"strings"
	"sync"

	"github.com/asaskevich/govalidator"
)

var once sync.Once

// RegisterCustomValidations adds Mechat's tags to govalidator's global TagMap.
// Safe to call more than once, registration happens a single time.
func RegisterCustomValidations(ctx context.Context, logger log.Logger) {
	once.Do(func() {
		// Hex encoded Mongo ObjectID, govalidator ships the check but not the tag.
		govalidator.TagMap["mongoid"] = govalidator.Validator(govalidator.IsMongoID)
		// This global validation doesn't allow whitespace in input.
		govalidator.TagMap["nospace"] = govalidator.Validator(func(str string) bool {
			return !govalidator.HasWhitespace(str)
		})
		// Rejects input made only of whitespace.
		govalidator.TagMap["nonblank"] = govalidator.Validator(func(str string) bool {
			return strings.TrimSpace(str) != ""
		})
		logger.WithCtx(ctx).Debug().Msg("Custom validations registered")
	})
}
