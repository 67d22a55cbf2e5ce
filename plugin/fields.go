package plugin

import (
	"github.com/zabeloliver/pihole-adapter/pihole-api/piholeApi"
)

type transform func(a *Adapter, v piholeApi.Value) (nValue int, sValue string)

// summaryField maps one key of the summary document onto a unit.
type summaryField struct {
	key       string
	unit      int
	transform transform
	force     func(a *Adapter) bool
}

func always(*Adapter) bool { return true }
func never(*Adapter) bool  { return false }

func whenActive(a *Adapter) bool { return a.active }

// summaryFields is applied in order. status comes first so the enabled flag
// is current for the fields that depend on it.
var summaryFields = []summaryField{
	{piholeApi.KeyStatus, SwitchUnit, statusValue, whenActive},
	{piholeApi.KeyDomainsBeingBlocked, DomainsBlockedUnit, domainsBlockedValue, always},
	{piholeApi.KeyDnsQueriesToday, DnsQueriesUnit, literalValue, never},
	{piholeApi.KeyAdsBlockedToday, AdsBlockedUnit, literalValue, never},
	{piholeApi.KeyAdsPercentageToday, AdsPercentageUnit, percentageValue, always},
	{piholeApi.KeyUniqueDomains, UniqueDomainsUnit, literalValue, never},
	{piholeApi.KeyQueriesForwarded, QueriesForwardedUnit, literalValue, never},
	{piholeApi.KeyQueriesCached, QueriesCachedUnit, literalValue, never},
	{piholeApi.KeyClientsEverSeen, ClientsEverSeenUnit, literalValue, always},
	{piholeApi.KeyUniqueClients, UniqueClientsUnit, literalValue, always},
}

func literalValue(_ *Adapter, v piholeApi.Value) (int, string) {
	n, _ := v.Int()
	return n, v.String()
}

func statusValue(a *Adapter, v piholeApi.Value) (int, string) {
	a.active = v.String() == piholeApi.StatusEnabled
	if a.active {
		return 1, "On"
	}
	return 0, "Off"
}

// Pi-hole reports "N/A" for the blocklist size while blocking is disabled.
func domainsBlockedValue(a *Adapter, v piholeApi.Value) (int, string) {
	if !a.active {
		return 0, "0"
	}
	return literalValue(a, v)
}

func percentageValue(_ *Adapter, v piholeApi.Value) (int, string) {
	f, ok := v.Float()
	if !ok {
		return 0, v.String()
	}
	rounded := piholeApi.Round2(f)
	return int(rounded), piholeApi.FormatFloat(rounded)
}
