package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("TRAININGSOFT_TEST_MODE", "1")
		if os.Getenv("API_BASE_URL") == "" {
			_ = os.Setenv("API_BASE_URL", "http://127.0.0.1:0")
		}
		_ = os.Setenv("NO_COLOR", "1")
	})
}

func init() {
	ensureTestMode()
}

func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
