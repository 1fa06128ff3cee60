package listen

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"

	"acarshub/internal/logger"
)

const tcpMaxBackoff = 30 * time.Second

// runTCP dials host:port, reads newline-delimited JSON, and reconnects with
// exponential backoff capped at 30s on connection loss. It never blocks
// indefinitely on a slow remote: reads use a rolling deadline.
func (l *Listener) runTCP(sink Sink) {
	addr := fmt.Sprintf("%s:%d", l.Desc.Host, l.Desc.Port)

	bo := backoff.NewExponentialBackOff()
	bo.MaxInterval = tcpMaxBackoff
	bo.MaxElapsedTime = 0 // retry forever

	for {
		select {
		case <-l.stop:
			return
		default:
		}

		conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			l.Status.recordFailure()
			l.Status.setConnected(false)
			wait := bo.NextBackOff()
			logger.Warnf("listen: %s tcp dial %s failed: %v, retrying in %s", l.Decoder, addr, err, wait)
			if !l.sleepOrStop(wait) {
				return
			}
			continue
		}

		bo.Reset()
		l.Status.setConnected(true)
		l.readTCPLines(sink, conn)
		l.Status.setConnected(false)
	}
}

func (l *Listener) readTCPLines(sink Sink, conn net.Conn) {
	defer conn.Close()

	stopped := make(chan struct{})
	go func() {
		select {
		case <-l.stop:
			conn.Close()
		case <-stopped:
		}
	}()
	defer close(stopped)

	scanner := bufio.NewScanner(conn)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	for scanner.Scan() {
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		l.push(sink, line)
	}
	if err := scanner.Err(); err != nil {
		l.Status.recordFailure()
	}
}

func (l *Listener) sleepOrStop(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-l.stop:
		return false
	}
}
