package main

import (
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mogaika/skelanim/config"
	"github.com/mogaika/skelanim/status"
	"github.com/mogaika/skelanim/store"
	"github.com/mogaika/skelanim/vfs"
	"github.com/mogaika/skelanim/web"
)

func main() {
	var addr, dir, cfgpath, webpath string
	var check bool
	flag.StringVar(&addr, "i", "", "Address of server, overrides config web.addr")
	flag.StringVar(&dir, "dir", "", "Path to folder with .iqm models and .anim scripts")
	flag.StringVar(&cfgpath, "config", "", "Path to config file (yaml, json or toml)")
	flag.StringVar(&webpath, "web", "", "Path to folder with static web data")
	flag.BoolVar(&check, "check", false, "Load every model, report problems and exit")
	flag.Parse()

	cfg, err := config.Load(cfgpath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = cfg.NewLogger(os.Stderr).Hook(status.LogHook{MinLevel: zerolog.InfoLevel})

	if dir == "" {
		flag.PrintDefaults()
		return
	}

	s, err := store.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	d := vfs.NewDirectoryDriver(dir)

	if check {
		if parseCheck(s, d) != 0 {
			os.Exit(1)
		}
		return
	}

	if _, err := s.LoadDirectory(d); err != nil {
		log.Fatal().Err(err).Str("dir", dir).Msg("load")
	}

	if addr == "" {
		addr = cfg.Web.Addr
	}
	if err := web.StartServer(addr, s, webpath); err != nil {
		log.Fatal().Err(err).Msg("server")
	}
}
