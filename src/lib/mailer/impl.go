package mailer

import (
	"fmt"
	"log"
	"os"
	"summit/src/lib"
	"summit/src/models"
)

func sender() (string, string) {
	return os.Getenv("MAIL_FROM"), os.Getenv("MAIL_FROM_NAME")
}

// NotifyClaimVerified tells the claimant their pass has been linked.
// Failures are logged only; mail is never on the request's critical path.
func NotifyClaimVerified(user *models.User, pass *models.Pass) {
	from, fromName := sender()
	input := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  "Your summit pass is confirmed",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour ticket claim has been verified and pass #%d (%s tier) is now linked to your account.\n\nSee you at the summit!",
			user.Name, pass.ID, pass.Tier,
		),
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("Error sending claim-verified mail to %s: %s\n", user.Email, err.Error())
	}
}

// NotifyUpgradeCompleted sends the upgrade receipt.
func NotifyUpgradeCompleted(user *models.User, pass *models.Pass, rec *models.UpgradeRecord) {
	from, fromName := sender()
	input := &lib.SendMailInput{
		From:     from,
		FromName: fromName,
		To:       []string{user.Email},
		Subject:  "Your summit pass upgrade receipt",
		Body: fmt.Sprintf(
			"Hi %s,\n\nYour pass #%d was upgraded from %s to %s. Upgrade fee charged: %.2f (payment ref %s).\n",
			user.Name, pass.ID, rec.FromTier, rec.ToTier, rec.Fee, rec.PaymentRef,
		),
	}
	if err := lib.SendMail(input); err != nil {
		log.Printf("Error sending upgrade receipt to %s: %s\n", user.Email, err.Error())
	}
}
