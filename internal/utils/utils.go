package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

var ownerAddressPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsOwnerAddress reports whether s is a well-formed wallet address.
func IsOwnerAddress(s string) bool {
	return ownerAddressPattern.MatchString(s)
}

// NewDeploymentID returns a unique token of the form
// deploy-<unix-millis>-<base36 suffix>. The suffix is derived from
// fresh UUID entropy so concurrent calls in the same millisecond
// cannot collide.
func NewDeploymentID() string {
	u := uuid.New()
	suffix := strconv.FormatUint(xxhash.Sum64(u[:]), 36)
	return fmt.Sprintf("deploy-%d-%s", time.Now().UnixMilli(), suffix)
}
