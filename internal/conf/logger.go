package conf

import (
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

func setupLogger() {
	level, err := logrus.ParseLevel(loggerSetting.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if CfgIf("LogFile") {
		out := &lumberjack.Logger{
			Filename:  filepath.Join(loggerFileSetting.SavePath, loggerFileSetting.FileName+loggerFileSetting.FileExt),
			MaxSize:   loggerFileSetting.MaxSize,
			MaxAge:    loggerFileSetting.MaxAge,
			LocalTime: true,
		}
		logrus.SetOutput(out)
	} else {
		logrus.SetOutput(os.Stderr)
	}
}
