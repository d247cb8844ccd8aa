package utils

import (
	"sync"
	"time"

	"github.com/mojocn/base64Captcha"
)

var (
	captchaStore     base64Captcha.Store
	captchaStoreOnce sync.Once
)

// captchaStoreFor prefers Redis so any instance can verify a captcha another one issued.
func captchaStoreFor() base64Captcha.Store {
	captchaStoreOnce.Do(func() {
		if GetRedis() != nil {
			captchaStore = NewRedisCaptchaStore(10 * time.Minute)
			return
		}
		captchaStore = base64Captcha.DefaultMemStore
	})
	return captchaStore
}

// GenerateCaptcha creates a 5 digit captcha and returns its id and data URI.
func GenerateCaptcha() (string, string, error) {
	driver := base64Captcha.NewDriverDigit(40, 120, 5, 0.7, 80)
	c := base64Captcha.NewCaptcha(driver, captchaStoreFor())
	id, b64, _, err := c.Generate()
	return id, b64, err
}

// VerifyCaptcha checks the answer and consumes the captcha.
func VerifyCaptcha(id, answer string) bool {
	if id == "" || answer == "" {
		return false
	}
	return captchaStoreFor().Verify(id, answer, true)
}
