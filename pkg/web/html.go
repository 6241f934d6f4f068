package web

import "fmt"

const pageShell = `<html><body style="font-family:sans-serif;text-align:center;padding:2em">%s</body></html>`

func verifiedPage(handle string) string {
	return fmt.Sprintf(pageShell,
		`<h1>✅ Verified!</h1>`+
			fmt.Sprintf(`<p>RSI account <strong>%s</strong> has been linked to your Discord account.</p>`, handle)+
			`<p>You now have full access to the server. You can close this tab.</p>`)
}

func flaggedPage(handle string) string {
	return fmt.Sprintf(pageShell,
		`<h1>⚠️ Flagged for Review</h1>`+
			fmt.Sprintf(`<p>RSI account <strong>%s</strong> has been linked to your Discord account.</p>`, handle)+
			`<p>Your membership has been flagged for moderator review.</p>`)
}

func alreadyVerifiedPage(handle string) string {
	return fmt.Sprintf(pageShell,
		`<h1>Already Verified</h1>`+
			fmt.Sprintf(`<p>Your Discord account is already verified as <strong>%s</strong>.</p>`, handle))
}

func notLinkedPage() string {
	return fmt.Sprintf(pageShell,
		`<h1>No Game Account Linked</h1>`+
			`<p>Your identity was confirmed, but no RSI game account is linked to it upstream. `+
			`Link a game account on your provider profile, then verify again.</p>`)
}

func expiredPage() string {
	return fmt.Sprintf(pageShell,
		`<h1>Link Expired</h1>`+
			`<p>Verification link expired. Please request a new one from the server.</p>`)
}

func failurePage() string {
	return fmt.Sprintf(pageShell,
		`<h1>Verification Failed</h1>`+
			`<p>Something went wrong during verification. Please try again or contact a server moderator.</p>`)
}
