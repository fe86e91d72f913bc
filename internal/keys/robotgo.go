package keys

import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// Robotgo injects key presses through the OS input layer.
type Robotgo struct{}

func (Robotgo) KeyTap(key string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("robotgo panicked while tapping %q: %v", key, r)
		}
	}()
	return robotgo.KeyTap(key)
}
