package engine

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewRunID returns "run_<unix millis>_<6 base36 chars>".
func NewRunID(now time.Time) string {
	var suffix [6]byte
	for i := range suffix {
		suffix[i] = base36[rand.IntN(len(base36))]
	}
	return "run_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + string(suffix[:])
}
