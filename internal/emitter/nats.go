/*
 * MIT License
 *
 * (C) Copyright [2025] Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher is the part of a NATS connection the emitter uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// NATSEmitter publishes events as JSON on <Subject>.<resource id>.
type NATSEmitter struct {
	Publisher Publisher
	Subject   string
	Logger    *logrus.Logger

	conn *nats.Conn
}

const DefaultSubject = "hpi.events"

// ConnectNATS dials the server at url and returns an emitter owning the
// connection.
func ConnectNATS(url, subject, svcName string, logger *logrus.Logger) (*NATSEmitter, error) {
	if logger == nil {
		logger = logrus.New()
	}
	nc, err := nats.Connect(url,
		nats.Name(svcName),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warnf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}
	e := NewNATSEmitter(nc, subject, logger)
	e.conn = nc
	return e, nil
}

func NewNATSEmitter(pub Publisher, subject string, logger *logrus.Logger) *NATSEmitter {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &NATSEmitter{Publisher: pub, Subject: subject, Logger: logger}
}

func (n *NATSEmitter) subjectFor(ev model.Event) string {
	return fmt.Sprintf("%s.%d", n.Subject, ev.Instrument.ResourceID)
}

func (n *NATSEmitter) Emit(ctx context.Context, ev model.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		count("nats", err)
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}
	err = n.Publisher.Publish(n.subjectFor(ev), data)
	count("nats", err)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", ev.ID, err)
	}
	return nil
}

// Close drains the connection if the emitter owns one.
func (n *NATSEmitter) Close() {
	if n.conn != nil {
		if err := n.conn.Drain(); err != nil {
			n.Logger.Warnf("NATS drain failed: %v", err)
			n.conn.Close()
		}
	}
}
