package formatter

import (
	"strconv"
	"strings"

	"github.com/alexanderramin/insurer/internal/domain"
	"github.com/alexanderramin/insurer/internal/payment"
	"github.com/alexanderramin/insurer/internal/service"
)

// CouponStatusPill returns a colored indicator for a coupon status.
func CouponStatusPill(s domain.CouponStatus) string {
	switch s {
	case domain.CouponPending:
		return StyleYellow.Render("○ Pending")
	case domain.CouponProcessing:
		return StyleBlue.Render("◐ Processing")
	case domain.CouponPaid:
		return StyleGreen.Render("✔ Paid")
	case domain.CouponExpired:
		return StyleRed.Render("✖ Expired")
	case domain.CouponCancelled:
		return StyleDim.Render("✖ Cancelled")
	default:
		return StyleDim.Render(string(s))
	}
}

// FormatCoupon renders one payment coupon.
func FormatCoupon(c *domain.Coupon) string {
	return RenderBox("Coupon "+c.Code, KeyValues(
		[2]string{"Amount", MoneyStyled(c.Amount)},
		[2]string{"Period", Humanize(string(c.Period))},
		[2]string{"Status", CouponStatusPill(c.Status)},
		[2]string{"Issued", c.IssueDate.Format("2006-01-02")},
		[2]string{"Due", c.DueDate.Format("2006-01-02")},
		[2]string{"Policies", strconv.Itoa(len(c.PolicyIDs))},
	))
}

// FormatCouponList renders coupons as a table.
func FormatCouponList(coupons []*domain.Coupon) string {
	if len(coupons) == 0 {
		return Dim("No coupons found.") + "\n"
	}
	rows := make([][]string, 0, len(coupons))
	for _, c := range coupons {
		rows = append(rows, []string{
			StyleGreen.Render(c.Code),
			FormatMoney(c.Amount),
			c.DueDate.Format("2006-01-02"),
			strconv.Itoa(len(c.PolicyIDs)),
			CouponStatusPill(c.Status),
		})
	}
	return RenderTable([]string{"CODE", "AMOUNT", "DUE", "POLICIES", "STATUS"}, rows, 1, 3)
}

// FormatCheckout tells the payer where to pay.
func FormatCheckout(r *service.CheckoutResult) string {
	var b strings.Builder
	b.WriteString(Success("Checkout created for " + Bold(r.Coupon.Code)))
	b.WriteString("\n\n")
	b.WriteString(KeyValues(
		[2]string{"Amount", MoneyStyled(r.Coupon.Amount)},
		[2]string{"Pay at", StyleBlue.Render(r.RedirectURL)},
	))
	b.WriteString("\n")
	return b.String()
}

// FormatConfirmation reports what a payment confirmation recorded.
func FormatConfirmation(c *service.Confirmation) string {
	var line string
	switch {
	case c.Status != payment.StatusApproved:
		line = StyleYellow.Render("○ ") + "Payment " + c.ExternalID + " is " + Humanize(string(c.Status)) + "; nothing recorded"
	case c.AlreadyRecorded:
		line = Success("Payment " + c.ExternalID + " was already recorded")
	default:
		line = Success(moneyPrinter.Sprintf("Payment %s recorded for %d policies", c.ExternalID, c.Recorded))
	}
	if c.CouponCode != "" {
		line += Dim(" (coupon " + c.CouponCode + ")")
	}
	return line + "\n"
}
