package envar

import "os"

const (
	CobDriverVerbose     = "COB_DRIVER_VERBOSE"
	CobDriverAddr        = "COB_DRIVER_ADDR"
	CobDriverConfigDir   = "COB_DRIVER_CONFIG_DIR"
	CobDriverCameraIndex = "COB_DRIVER_CAMERA_INDEX"
	CobDriverCors        = "COB_DRIVER_CORS"
)

func Getenv(key, defaultValue string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	return val
}
