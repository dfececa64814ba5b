package memdb

import (
	"testing"

	"github.com/sudo-init-do/gighub/internal/store/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) storetest.Backend {
		return New()
	})
}
