package piholeApi

import (
	"net/url"
)

const (
	ApiPath          = "admin/api.php"
	ApiSummary       = "summaryRaw"
	ApiRecentBlocked = "recentBlocked"
	ApiEnable        = "enable"
	ApiDisable       = "disable"

	StatusEnabled = "enabled"
)

// Keys of the summaryRaw document.
const (
	KeyDomainsBeingBlocked = "domains_being_blocked"
	KeyDnsQueriesToday     = "dns_queries_today"
	KeyAdsBlockedToday     = "ads_blocked_today"
	KeyAdsPercentageToday  = "ads_percentage_today"
	KeyUniqueDomains       = "unique_domains"
	KeyQueriesForwarded    = "queries_forwarded"
	KeyQueriesCached       = "queries_cached"
	KeyClientsEverSeen     = "clients_ever_seen"
	KeyUniqueClients       = "unique_clients"
	KeyStatus              = "status"
)

// Path builds "/admin/api.php?<action>" with an optional auth parameter.
// The token is query-escaped; an empty token adds nothing.
func Path(action string, token string) string {
	p := "/" + ApiPath + "?" + action
	if token != "" {
		p += "&auth=" + url.QueryEscape(token)
	}
	return p
}

func SummaryPath(token string) string {
	return Path(ApiSummary, token)
}

func RecentBlockedPath() string {
	return Path(ApiRecentBlocked, "")
}

// TogglePath returns the enable/disable path for an On/Off command.
// ok is false for any other command or when no token is configured.
func TogglePath(command string, token string) (path string, ok bool) {
	if token == "" {
		return "", false
	}
	switch command {
	case "On":
		return Path(ApiEnable, token), true
	case "Off":
		return Path(ApiDisable, token), true
	}
	return "", false
}

// Headers is the fixed header set sent with every request.
func Headers(address string, port string) map[string]string {
	return map[string]string{
		"Content-Type": "text/xml; charset=utf-8",
		"Connection":   "keep-alive",
		"Accept":       "Content-Type: text/html; charset=UTF-8",
		"Host":         address + ":" + port,
		"User-Agent":   "Domoticz/1.0",
	}
}
