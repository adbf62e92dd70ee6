package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DecoderOpenCV = "opencv"
	DecoderGo     = "go"
)

type Config struct {
	ModelPath string

	// OpenCV DNN only (.pbtxt, .prototxt)
	ModelConfigPath string

	// Empty means the bundled COCO label map.
	LabelsPath    string
	NumThreads    int
	EnableEdgeTPU bool

	// opencv or go
	ImageDecoder string

	// Empty means every category is reported.
	Categories     []string
	MaxResults     int
	ScoreThreshold float64

	// Optional file receiving a copy of the detection JSON.
	ResultJSONPath string

	// Empty disables log files.
	LogDirectory string
	LogLevel     string
}

// Load reads an optional .env file from the working directory and then the
// process environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ModelPath:       getEnv("DETECTOR_MODEL", "efficientdet_lite0.tflite"),
		ModelConfigPath: getEnv("DETECTOR_MODEL_CONFIG", ""),
		LabelsPath:      getEnv("DETECTOR_LABELS", ""),
		NumThreads:      getEnvAsInt("DETECTOR_NUM_THREADS", 4),
		EnableEdgeTPU:   getEnvAsBool("DETECTOR_ENABLE_EDGETPU", false),
		ImageDecoder:    getEnv("DETECTOR_IMAGE_DECODER", DecoderOpenCV),
		Categories:      getEnvAsList("DETECTOR_CATEGORIES", nil),
		MaxResults:      getEnvAsInt("DETECTOR_MAX_RESULTS", 10),
		ScoreThreshold:  getEnvAsFloat("DETECTOR_SCORE_THRESHOLD", 0.3),
		ResultJSONPath:  getEnv("DETECTOR_RESULT_JSON", ""),
		LogDirectory:    getEnv("LOG_DIR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
