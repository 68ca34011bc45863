package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MEALDESK_TEST_MODE") == "" {
			_ = os.Setenv("MEALDESK_TEST_MODE", "1")
		}
	})
}
