package live

import "time"

// EstimateOffset computes a client's clock offset from one completed
// time-sync round trip: clientSent and clientReceived are the client-clock
// instants around the exchange, serverTime is the server-clock instant from
// the response. The estimate assumes a symmetric network path, so it is
// accurate to within half the round-trip time.
//
// A client corrects every rendered countdown by this offset and re-runs the
// handshake on reconnect and on return-to-foreground; its own clock is never
// the source of truth.
func EstimateOffset(clientSent, serverTime, clientReceived time.Time) time.Duration {
	roundTrip := clientReceived.Sub(clientSent)
	return serverTime.Add(roundTrip / 2).Sub(clientReceived)
}

// OffsetMillis is EstimateOffset over the epoch-millisecond fields of the
// wire messages.
func OffsetMillis(clientSentMs, serverTimeMs, clientReceivedMs int64) int64 {
	roundTrip := clientReceivedMs - clientSentMs
	return serverTimeMs + roundTrip/2 - clientReceivedMs
}
