package listen

import (
	"context"
	"fmt"

	"github.com/go-zeromq/zmq4"

	"acarshub/internal/logger"
)

// runZMQ subscribes to a PUB socket at tcp://host:port with an empty topic
// filter (receive everything).
func (l *Listener) runZMQ(sink Sink) {
	endpoint := fmt.Sprintf("tcp://%s:%d", l.Desc.Host, l.Desc.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-l.stop
		cancel()
	}()

	sock := zmq4.NewSub(ctx)
	defer sock.Close()

	if err := sock.Dial(endpoint); err != nil {
		logger.Errorf("listen: %s zmq dial %s failed: %v", l.Decoder, endpoint, err)
		return
	}
	if err := sock.SetOption(zmq4.OptionSubscribe, ""); err != nil {
		logger.Errorf("listen: %s zmq subscribe failed: %v", l.Decoder, err)
		return
	}
	l.Status.setConnected(true)
	defer l.Status.setConnected(false)

	for {
		msg, err := sock.Recv()
		if err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			l.Status.recordFailure()
			continue
		}
		for _, frame := range msg.Frames {
			if len(frame) == 0 {
				continue
			}
			l.push(sink, frame)
		}
	}
}
