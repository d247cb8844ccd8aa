package middleware

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/fitlife/fitlife/models"
)

var registerOnce sync.Once

// RegisterValidators adds the custom binding tags used by request payloads:
//
//	fitcategory  value is one of models.Categories
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("fitcategory", func(fl validator.FieldLevel) bool {
			return models.ValidCategory(fl.Field().String())
		})
	})
}
