package mqtt

import "fmt"

// Topic prefixes for the VoltWatch MQTT namespace.
//
// Request/response traffic between services uses the scheme:
//
//	{service}/rpc/request/{command}   — commands a service answers
//	{service}/rpc/reply/{suffix}      — replies addressed to one caller
const (
	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "voltwatch/system"
)

// Topics provides builders for VoltWatch MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
type Topics struct{}

// RPCRequest returns the request topic for a command under the given prefix.
//
// Example: users/rpc/request/check_user_exists
func (Topics) RPCRequest(prefix, command string) string {
	return fmt.Sprintf("%s/%s", prefix, command)
}

// RPCReply returns the reply topic for a caller-specific suffix.
//
// Example: voltwatch/rpc/reply/7f3c9a12
func (Topics) RPCReply(prefix, suffix string) string {
	return fmt.Sprintf("%s/%s", prefix, suffix)
}

// AllRPCRequests returns a pattern matching every command under a prefix.
//
// Pattern: voltwatch/rpc/request/+
func (Topics) AllRPCRequests(prefix string) string {
	return fmt.Sprintf("%s/+", prefix)
}

// SystemStatus returns the system status topic.
//
// Example: voltwatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}
