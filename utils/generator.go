package utils

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/telecare/telehealth_api/models"
	"gorm.io/gorm"
)

const maxOrderCodeAttempts = 16

// PayOS caps orderCode at 2^53-1 so it survives a JSON number round trip.
const maxOrderCode = 1<<53 - 1

var ErrOrderCodeExhausted = errors.New("could not find a free order code")

// GenerateUniqueOrderCode draws a candidate from next and steps past codes already used
// by a package payment or a balance recharge.
func GenerateUniqueOrderCode(tx *gorm.DB, next func() int64) (int64, error) {
	code := next() % maxOrderCode
	for i := 0; i < maxOrderCodeAttempts; i++ {
		used, err := orderCodeUsed(tx, code)
		if err != nil {
			return 0, err
		}
		if !used {
			return code, nil
		}
		code++
	}
	return 0, ErrOrderCodeExhausted
}

func orderCodeUsed(tx *gorm.DB, code int64) (bool, error) {
	for _, table := range []any{&models.PackagePayment{}, &models.BalanceRecharge{}} {
		var count int64
		if err := tx.Model(table).Where("order_code = ?", code).Count(&count).Error; err != nil {
			return false, err
		}
		if count > 0 {
			return true, nil
		}
	}
	return false, nil
}

// VerificationCode returns a random six digit code, zero padded.
func VerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
