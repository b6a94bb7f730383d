// Package mqtt provides MQTT client connectivity for VoltWatch Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// VoltWatch uses MQTT as the message bus connecting the device service to
// the platform's other microservices. The remote user directory and the
// monitoring service are reached over request/response topics built by
// the rpc package on top of this client; inbound commands from peer
// services ("remove the devices of user X", "does device X exist",
// "report consumption for device X") arrive the same way.
//
//	VoltWatch Core ↔ MQTT Broker ↔ user directory / monitoring / peers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Serve every inbound command
//	err = client.Subscribe(mqtt.Topics{}.AllRPCRequests(cfg.RPC.RequestPrefix), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
package mqtt
