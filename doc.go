/*
Package ipupdate discovers a host's current public IP addresses and keeps
Route 53 address records pointed at them.

Usage will always start with [New],
which assembles a [Client] from a merged [Config] and a set of options.
[Client.Run] performs one discovery-reconcile-apply cycle:
candidate addresses are gathered from local interfaces and/or an IP echo service,
reduced to at most one routable address per family,
and each configured hostname's A/AAAA records are upserted only when they
differ from the discovered address.
*/
package ipupdate

// Version is reported to the IP echo service in the User-Agent header.
const Version = "1.2.0"
