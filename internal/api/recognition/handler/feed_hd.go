package recognitionHandler

import (
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// handlePlateFeed keeps the subscriber registered until the client goes away.
// Inbound messages are ignored apart from ping handling.
func (h *RecognitionHandler) handlePlateFeed(c *websocket.Conn) {
	c.SetPingHandler(func(data string) error {
		return c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second))
	})

	h.hub.Register(c)
	defer func() {
		h.hub.Unregister(c)
		_ = c.Close()
	}()

	h.log.WithFields(logrus.Fields{
		"remote_addr": c.RemoteAddr().String(),
		"subscribers": h.hub.Count(),
	}).Info("Plate feed subscriber connected")

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.WithField("error", err.Error()).Warn("Plate feed read error")
			}
			return
		}
	}
}
