package plugin

import "github.com/zabeloliver/pihole-adapter/host"

// Units of the sensor slots. They are stable across restarts.
const (
	DomainsBlockedUnit   = 1
	DnsQueriesUnit       = 2
	AdsBlockedUnit       = 3
	AdsPercentageUnit    = 4
	UniqueDomainsUnit    = 5
	QueriesForwardedUnit = 6
	QueriesCachedUnit    = 7
	ClientsEverSeenUnit  = 8
	UniqueClientsUnit    = 9
	SwitchUnit           = 10
	RecentBlockedUnit    = 11
)

func counter(unit int, name string, used bool) host.Device {
	return host.Device{
		Unit:     unit,
		Name:     name,
		TypeName: "Custom",
		Options:  map[string]string{"Custom": "1;"},
		Used:     used,
	}
}

// summaryDevices are always present. Only the first four are marked used;
// the rest can be enabled by the user.
var summaryDevices = []host.Device{
	counter(DomainsBlockedUnit, "Domains Blocked", true),
	counter(DnsQueriesUnit, "DNS Queries", true),
	counter(AdsBlockedUnit, "Ads Blocked", true),
	{
		Unit:     AdsPercentageUnit,
		Name:     "Ads Percentage",
		TypeName: "Custom",
		Options:  map[string]string{"Custom": "1;%"},
		Used:     true,
	},
	counter(UniqueDomainsUnit, "Unique Domains", false),
	counter(QueriesForwardedUnit, "Queries Forwarded", false),
	counter(QueriesCachedUnit, "Queries Cached", false),
	counter(ClientsEverSeenUnit, "Clients Ever Seen", false),
	counter(UniqueClientsUnit, "Unique Clients", false),
}

var switchDevice = host.Device{
	Unit:     SwitchUnit,
	Name:     "On/Off",
	TypeName: "Switch",
	Used:     true,
}

var recentBlockedDevice = host.Device{
	Unit:     RecentBlockedUnit,
	Name:     "Recently Blocked",
	TypeName: "Text",
	Used:     true,
}
