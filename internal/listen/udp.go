package listen

import (
	"fmt"
	"net"

	"acarshub/internal/logger"
)

const udpReadBufferSize = 64 * 1024

// runUDP binds host:port and treats each datagram as one JSON line.
func (l *Listener) runUDP(sink Sink) {
	addr := fmt.Sprintf("%s:%d", l.Desc.Host, l.Desc.Port)
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		logger.Errorf("listen: %s udp resolve %s failed: %v", l.Decoder, addr, err)
		return
	}

	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		logger.Errorf("listen: %s udp bind %s failed: %v", l.Decoder, addr, err)
		return
	}
	defer conn.Close()
	l.Status.setConnected(true)
	defer l.Status.setConnected(false)

	go func() {
		<-l.stop
		conn.Close()
	}()

	buf := make([]byte, udpReadBufferSize)
	for {
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			l.Status.recordFailure()
			continue
		}
		if n == 0 {
			continue
		}
		l.push(sink, buf[:n])
	}
}
