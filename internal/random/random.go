package random

import (
	"crypto/rand"
	"math/big"

	"github.com/sesamejw/inkwell-pages-emporium-sub002/internal/errors"
)

var allowedLetters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ")

// Letters generates a random string of n letters. Used for uncollidable in-memory database names.
func Letters(n uint) (string, error) {
	letters := make([]rune, n)
	for i := range letters {
		letterIndex, err := rand.Int(rand.Reader, big.NewInt(int64(len(allowedLetters))))
		if err != nil {
			return "", errors.Wrap(err, "generate random letter")
		}
		letters[i] = allowedLetters[letterIndex.Int64()]
	}
	return string(letters), nil
}

// Percent rolls a percentile die, returning a value in [1,100]. Random event
// probabilities are expressed as percent chances, so callers compare the roll
// against the event's probability to decide whether it fires.
func Percent() (int, error) {
	roll, err := rand.Int(rand.Reader, big.NewInt(100))
	if err != nil {
		return 0, errors.Wrap(err, "roll percentile die")
	}
	return int(roll.Int64()) + 1, nil
}
