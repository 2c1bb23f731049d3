package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"fedipush-backend/internal"
	"fedipush-backend/internal/conf"
)

var (
	noDefaultFeatures bool
	features          suites
	configPath        string
)

type suites []string

func (s *suites) String() string {
	return strings.Join(*s, ",")
}

func (s *suites) Set(value string) error {
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			*s = append(*s, item)
		}
	}
	return nil
}

func init() {
	flag.BoolVar(&noDefaultFeatures, "no-default-features", false, "whether use default features")
	flag.Var(&features, "features", "use special features")
	flag.StringVar(&configPath, "config", "", "config file path")
	flag.Parse()

	var paths []string
	if configPath != "" {
		paths = append(paths, configPath)
	}
	conf.Initialize(features, noDefaultFeatures, paths...)
	internal.Initialize()
}

func main() {
	logrus.Infof("%s@%s serving", conf.AppSetting.LocalDomain, conf.AppSetting.RunMode)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down")
}
