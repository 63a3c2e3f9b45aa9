package services

import (
	"fmt"

	"github.com/telecare/telehealth_api/models"
)

type PackageBenefit struct {
	ScheduleLimit int    `json:"schedule_limit"`
	IsPriority    bool   `json:"is_priority"`
	Name          string `json:"name"`
	Description   string `json:"description"`
}

// PackagePrices maps package -> months -> amount in VND.
var PackagePrices = map[string]map[int]int64{
	models.PackageSilver:  {1: 3000},
	models.PackageGold:    {1: 5000},
	models.PackageDiamond: {1: 10000},
}

var PackageBenefits = map[string]PackageBenefit{
	models.PackageFree:    {ScheduleLimit: 5, Name: "Free", Description: "Free plan, 5 schedules per week"},
	models.PackageSilver:  {ScheduleLimit: 10, Name: "Silver", Description: "Silver plan, 10 schedules per week"},
	models.PackageGold:    {ScheduleLimit: 20, Name: "Gold", Description: "Gold plan, 20 schedules per week"},
	models.PackageDiamond: {ScheduleLimit: 100, IsPriority: true, Name: "Diamond", Description: "Diamond plan, 100 schedules per week and priority listing"},
}

var packageLevel = map[string]int{
	models.PackageFree:    0,
	models.PackageSilver:  1,
	models.PackageGold:    2,
	models.PackageDiamond: 3,
}

var ValidDurations = []int{1, 3, 6, 12}

// MinPaymentAmount is the smallest amount the gateway accepts.
const MinPaymentAmount int64 = 2000

func PurchasablePackage(p string) bool {
	return p == models.PackageSilver || p == models.PackageGold || p == models.PackageDiamond
}

func ValidDuration(months int) bool {
	for _, d := range ValidDurations {
		if d == months {
			return true
		}
	}
	return false
}

// PackagePrice returns the catalog price, false when the package/duration pair is not sold.
func PackagePrice(pkg string, months int) (int64, bool) {
	byDuration, ok := PackagePrices[pkg]
	if !ok {
		return 0, false
	}
	amount, ok := byDuration[months]
	return amount, ok
}

func WeeklyLimit(pkg string) int {
	if b, ok := PackageBenefits[pkg]; ok {
		return b.ScheduleLimit
	}
	return PackageBenefits[models.PackageFree].ScheduleLimit
}

func PackageLevel(pkg string) int {
	return packageLevel[pkg]
}

func packageShortName(pkg string) string {
	switch pkg {
	case models.PackageSilver:
		return "Bac"
	case models.PackageGold:
		return "Vang"
	case models.PackageDiamond:
		return "KC"
	default:
		return pkg
	}
}

// shortDescription fits the gateway's 25 character description limit.
func shortDescription(pkg string, months int) string {
	return fmt.Sprintf("Goi %s %dT", packageShortName(pkg), months)
}
