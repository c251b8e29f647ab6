package api

import (
	"encoding/json"
	"net/http"

	"github.com/coder/websocket"

	"github.com/MrWong99/vocero/internal/engine"
)

// streamChunkSize is the binary frame size for streamed audio.
const streamChunkSize = 32 << 10

// streamDone is the final text frame on a successful stream.
type streamDone struct {
	Success    bool   `json:"success"`
	Engine     string `json:"engine"`
	Voice      string `json:"voice"`
	Reason     string `json:"reason"`
	AudioBytes int    `json:"audio_bytes"`
}

// handleSpeakStream upgrades to a WebSocket, reads one synthesis request as
// a JSON text frame, streams the resulting audio back in binary frames, and
// finishes with a JSON status frame.
func (s *Server) handleSpeakStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.log.Warn("websocket accept failed", "err", err)
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	s.metrics.ActiveStreams.Add(ctx, 1)
	defer s.metrics.ActiveStreams.Add(ctx, -1)

	typ, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	if typ != websocket.MessageText {
		conn.Close(websocket.StatusUnsupportedData, "expected a JSON text frame")
		return
	}

	var req engine.Request
	if err := json.Unmarshal(data, &req); err != nil {
		conn.Close(websocket.StatusInvalidFramePayloadData, "malformed request")
		return
	}
	// Streaming always returns audio to the client; the server neither
	// plays nor writes files on behalf of a stream.
	req.Play = false
	req.OutputPath = ""

	res, sel, err := s.app.SelectAndSynthesize(ctx, req)
	if err != nil {
		conn.Close(websocket.StatusInternalError, truncateReason(err.Error()))
		return
	}

	audio := res.Audio
	for len(audio) > 0 {
		n := streamChunkSize
		if n > len(audio) {
			n = len(audio)
		}
		if err := conn.Write(ctx, websocket.MessageBinary, audio[:n]); err != nil {
			return
		}
		audio = audio[n:]
	}

	done, _ := json.Marshal(streamDone{
		Success:    true,
		Engine:     res.Engine,
		Voice:      res.Voice.Name,
		Reason:     string(sel.Reason),
		AudioBytes: len(res.Audio),
	})
	if err := conn.Write(ctx, websocket.MessageText, done); err != nil {
		return
	}
	conn.Close(websocket.StatusNormalClosure, "done")
}

// truncateReason keeps close reasons within the 123-byte control frame limit.
func truncateReason(reason string) string {
	const maxLen = 123
	if len(reason) <= maxLen {
		return reason
	}
	return reason[:maxLen]
}
