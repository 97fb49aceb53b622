package middleware

import (
	"reflect"
	"strings"

	"github.com/channelsync/backend/internal/domain/sync"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// SetupValidator configures gin's validator with custom tags. Field names in
// binding errors use the JSON tag so API callers see the wire name, and the
// synctype tag restricts a field to the known sync request levels.
func SetupValidator() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	v.RegisterValidation("synctype", func(fl validator.FieldLevel) bool {
		return sync.SyncType(fl.Field().String()).IsValid()
	})
}
