package formatter

import (
	"github.com/alexanderramin/insurer/internal/domain"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

// FormatMoney renders an amount as "$1,500.00". Whole units and cents are
// printed separately so large amounts never pass through a float.
func FormatMoney(m domain.Money) string {
	v := int64(m)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return moneyPrinter.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// MoneyStyled renders FormatMoney in bold.
func MoneyStyled(m domain.Money) string {
	return StyleBold.Render(FormatMoney(m))
}
