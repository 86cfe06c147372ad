package main

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/camera/placeholder"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamFrames pushes the camera's latest frames over a websocket as
// JPEG messages, paced by the configured frame rate. Capture failures
// show up as a rendered error image instead of a dead stream.
func StreamFrames(cam camera.Camera, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Error().Println("upgrade:", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	camLock.Lock()
	fps, err := cam.GetProperty(camera.PropFrameRate)
	camLock.Unlock()
	if err != nil {
		l.Error().Println("frame rate:", err)
		return
	}

	ticker := time.NewTicker(time.Duration(float64(time.Second) / fps.Or(15)))
	defer ticker.Stop()

	for range ticker.C {
		camLock.Lock()
		frame, err := cam.GetFrame(true)
		camLock.Unlock()

		var img image.Image
		if err != nil {
			img, err = placeholder.Create(
				640, 480,
				color.RGBA{A: 255},
				color.RGBA{R: 255, A: 255},
				err.Error(),
				true,
			)
			if err != nil {
				l.Error().Println("placeholder:", err)
				return
			}
		} else {
			img, err = frame.Image()
			if err != nil {
				l.Error().Println("frame image:", err)
				return
			}
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, nil); err != nil {
			l.Error().Println("encode:", err)
			return
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
			l.Verbose().Println("client gone:", err)
			return
		}
	}
}
