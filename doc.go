// Package mqtt implements a client-side MQTT 3.1.1 protocol engine.
//
// The package is built around a Client handle that owns all per-connection
// protocol state: topic handler registries (exact and wildcard), correlation
// of SUBACK/UNSUBACK packets with the calls that triggered them, buffering of
// actions issued before a transport is attached, and keep-alive pinging.
//
// # Client
//
// A Client starts detached. Operations issued before a transport exists are
// buffered and replayed, in order, once SetStream installs one:
//
//	client := mqtt.NewClient()
//	client.SetTopicHandler("sensors/+/temp", func(t mqtt.Transport, payload []byte, err error) {
//	    // handle inbound publishes
//	})
//	client.Connect(30, nil, nil, func(err error) {
//	    // connection acknowledged (or refused)
//	})
//
//	conn, _ := (&mqtt.TCPDialer{}).Dial(ctx, "broker:1883")
//	client.SetStream(mqtt.NewStreamTransport(conn))
//
// Outgoing publishes are always sent at QoS 0 regardless of the requested
// level; this is a documented contract of the engine, not an accident.
//
// # Packets
//
// The package carries its own MQTT 3.1.1 codec. ReadPacket and WritePacket
// convert between typed packet values and the wire:
//
//	pkt, err := mqtt.ReadPacket(conn, mqtt.MaxPacketSize)
//	err = mqtt.WritePacket(conn, &mqtt.PingreqPacket{})
//
// # Transports
//
// Transport abstracts the byte stream under the engine. StreamTransport works
// over any net.Conn; dialers are provided for TCP, TLS, WebSocket (binary
// frames, "mqtt" subprotocol), QUIC, Unix domain sockets, and SOCKS5-proxied
// TCP.
package mqtt
