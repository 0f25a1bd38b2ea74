package payout

import "strings"

// permanentReasons are failure fragments that no amount of retrying fixes.
// They win over the transient list when both match.
var permanentReasons = []string{
	"payee not found",
	"account not found",
	"invalid account",
	"invalid phone",
	"invalid msisdn",
	"account blocked",
	"account barred",
	"not allowed",
	"unauthorized",
}

// transientReasons are failure fragments worth another attempt. Wallet
// limits count as transient: daily caps reset and the cooldown doubles
// between attempts.
var transientReasons = []string{
	"timeout",
	"timed out",
	"unavailable",
	"internal error",
	"internal processing",
	"service temporarily",
	"temporary",
	"try again",
	"connection",
	"limit exceeded",
	"payer limit",
	"502",
	"503",
}

// ShouldRetry classifies a payout failure reason. Unknown reasons are
// treated as transient: a stuck driver payment is worse than a wasted
// provider call.
func ShouldRetry(reason string) bool {
	r := strings.ToLower(reason)
	for _, p := range permanentReasons {
		if strings.Contains(r, p) {
			return false
		}
	}
	for _, t := range transientReasons {
		if strings.Contains(r, t) {
			return true
		}
	}
	return true
}
