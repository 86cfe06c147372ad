package main

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/allape/gogger"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ipa-rmb-ds/cob-driver/camera"
	"github.com/ipa-rmb-ds/cob-driver/config"
	"github.com/ipa-rmb-ds/cob-driver/envar"
	"github.com/ipa-rmb-ds/cob-driver/factory"
)

var l = gogger.New("main")

// camLock serializes handle access across HTTP handlers; the camera
// contract leaves synchronization to the owner.
var camLock sync.Mutex

func main() {
	if envar.Getenv(envar.CobDriverVerbose, "") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	dir := envar.Getenv(envar.CobDriverConfigDir, ".")
	addr := envar.Getenv(envar.CobDriverAddr, ":8080")

	index, err := strconv.Atoi(envar.Getenv(envar.CobDriverCameraIndex, "0"))
	if err != nil {
		l.Error().Fatalln("bad camera index:", err)
	}

	cam, err := factory.FromConfig(dir, index)
	if err != nil {
		l.Error().Fatalln("camera from config:", err)
	}

	if err := cam.Init(dir, index); err != nil {
		l.Error().Fatalln("init camera:", err)
	}
	if err := cam.Open(); err != nil {
		l.Error().Fatalln("open camera:", err)
	}
	defer func() {
		if err := cam.Close(); err != nil {
			l.Warn().Println("close camera:", err)
		}
	}()

	router := gin.Default()
	if envar.Getenv(envar.CobDriverCors, "") != "" {
		router.Use(cors.Default())
	}

	router.GET("/api/info", func(c *gin.Context) {
		camLock.Lock()
		defer camLock.Unlock()

		var sb strings.Builder
		if err := cam.PrintCameraInformation(&sb); err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, sb.String())
	})

	router.GET("/api/property/:name", func(c *gin.Context) {
		id, err := camera.ParsePropertyID(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		camLock.Lock()
		value, err := cam.GetProperty(id)
		camLock.Unlock()
		if err != nil {
			c.JSON(statusOf(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": string(id), "value": value.String()})
	})

	router.PUT("/api/property/:name", func(c *gin.Context) {
		id, err := camera.ParsePropertyID(c.Param("name"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		value, err := config.ParseValue(c.Query("value"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		camLock.Lock()
		err = cam.SetProperty(id, value)
		camLock.Unlock()
		if err != nil {
			c.JSON(statusOf(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": string(id), "value": value.String()})
	})

	router.POST("/api/defaults", func(c *gin.Context) {
		camLock.Lock()
		err := cam.SetPropertyDefaults()
		camLock.Unlock()
		if err != nil {
			c.JSON(statusOf(err), gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusOK)
	})

	router.POST("/api/save", func(c *gin.Context) {
		filename := c.Query("file")
		if filename == "" {
			filename = filepath.Join(dir, "savedCameraParameters.toml")
		}

		camLock.Lock()
		err := cam.SaveParameters(filename)
		camLock.Unlock()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"file": filename})
	})

	router.GET("/stream", func(c *gin.Context) {
		StreamFrames(cam, c.Writer, c.Request)
	})

	go func() {
		l.Info().Println("listening on", addr)
		if err := router.Run(addr); err != nil {
			l.Error().Fatalln("serve:", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	l.Info().Println("shutting down")
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, camera.ErrUnsupportedProperty):
		return http.StatusNotFound
	case errors.Is(err, camera.ErrInvalidValue):
		return http.StatusUnprocessableEntity
	case errors.Is(err, camera.ErrNotOpen):
		return http.StatusConflict
	case errors.Is(err, camera.ErrTimeout):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
