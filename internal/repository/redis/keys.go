package redis

import "fmt"

const ns = "tixhub:v1"

func KeyEvent(eventID int64) string {
	return fmt.Sprintf("%s:event:%d", ns, eventID)
}

func KeyEventAvailability(eventID int64) string {
	return fmt.Sprintf("%s:event:%d:availability", ns, eventID)
}

func KeyVenue(venueID int64) string {
	return fmt.Sprintf("%s:venue:%d", ns, venueID)
}

func KeyRateLimit(scope string) string {
	return fmt.Sprintf("%s:rl:%s", ns, scope)
}

func KeyRefreshToken(tokenHash string) string {
	return fmt.Sprintf("%s:refresh:%s", ns, tokenHash)
}

func KeyIdemEventCreate(userID int64, idemKey string) string {
	return fmt.Sprintf("%s:idem:events:%d:%s", ns, userID, idemKey)
}

func ChannelEventsChanged() string {
	return ns + ":events:changed"
}
