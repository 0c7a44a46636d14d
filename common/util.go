package common

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
)

var ErrParseBigInt = fmt.Errorf("failed to parse big integer")

// ParseBigInt parses a base 10 big integer from a string.
func ParseBigInt(num string) (*big.Int, error) {
	bigNum, ok := new(big.Int).SetString(num, 10)
	if !ok {
		return nil, ErrParseBigInt
	}
	return bigNum, nil
}

// ParseTicketIDs parses a comma separated list of ticket ids.
func ParseTicketIDs(s string) ([]uint64, error) {
	parts := strings.Split(s, ",")
	ids := make([]uint64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ticket id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
