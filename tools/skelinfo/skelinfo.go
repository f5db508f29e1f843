package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/skelanim/animscript"
	"github.com/mogaika/skelanim/config"
	"github.com/mogaika/skelanim/skeleton"
	"github.com/mogaika/skelanim/store"
	"github.com/mogaika/skelanim/utils"
	"github.com/mogaika/skelanim/utils/gltfutils"
	"github.com/mogaika/skelanim/vfs"
)

func main() {
	var dir, model, cfgpath, gltfOut, fbxOut, posed string
	var dump, asYaml, render bool
	flag.StringVar(&dir, "dir", ".", "Path to folder with models")
	flag.StringVar(&model, "model", "", "Model name, without extension")
	flag.StringVar(&cfgpath, "config", "", "Path to config file")
	flag.BoolVar(&dump, "dump", false, "Dump loaded model structures")
	flag.BoolVar(&asYaml, "yaml", false, "Print parsed script as yaml")
	flag.BoolVar(&render, "render", false, "Print parsed script as script text")
	flag.StringVar(&gltfOut, "gltf", "", "Write model as binary gltf to this file")
	flag.StringVar(&fbxOut, "fbx", "", "Write skeleton as fbx to this file")
	flag.StringVar(&posed, "pose", "", "With -gltf: export pose 'animation:milliseconds' instead of animations")
	flag.Parse()

	cfg, err := config.Load(cfgpath)
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	log.Logger = cfg.NewLogger(os.Stderr)

	if model == "" {
		flag.PrintDefaults()
		return
	}

	s, err := store.New(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("store")
	}
	m, err := s.LoadFromDirectory(vfs.NewDirectoryDriver(dir), model)
	if err != nil {
		log.Fatal().Err(err).Str("model", model).Msg("load")
	}

	fmt.Printf("%s: %d meshes, %d vertexes, %d triangles, %d joints, %d frames\n",
		m.Name, len(m.Raw.Meshes), m.Raw.Vertexes.Len(), len(m.Raw.Triangles),
		m.Data.NumJoints(), m.Data.NumFrames())
	if tree, err := skeleton.BuildTree(m.Data); err == nil {
		fmt.Print(tree)
	}
	for _, a := range m.Table.Actions {
		fmt.Printf("action %q frames %d..%d, %.1fms, distance %.3f\n",
			a.Name, a.StartFrame, a.EndFrame, a.Duration(), a.AnimationDistance)
	}

	if dump {
		utils.Fdump(os.Stdout, m.Raw.Meshes, m.Raw.Joints, m.Raw.Anims, m.Table)
	}
	if m.Script != nil {
		if asYaml {
			enc := yaml.NewEncoder(os.Stdout)
			enc.SetIndent(2)
			if err := enc.Encode(m.Script); err != nil {
				log.Fatal().Err(err).Msg("yaml")
			}
			enc.Close()
		}
		if render {
			if err := animscript.Render(os.Stdout, m.Script); err != nil {
				log.Fatal().Err(err).Msg("render")
			}
		}
	}

	if fbxOut != "" {
		fb, err := m.ExportFbxDefault()
		if err != nil {
			log.Fatal().Err(err).Msg("fbx")
		}
		f, err := os.Create(fbxOut)
		if err != nil {
			log.Fatal().Err(err).Msg("fbx")
		}
		if err := fb.Write(f); err != nil {
			f.Close()
			log.Fatal().Err(err).Msg("fbx")
		}
		f.Close()
		log.Info().Str("file", fbxOut).Msg("fbx written")
	}

	if gltfOut != "" {
		doc := gltfutils.NewDocument()
		if posed != "" {
			e, err := s.NewEntity(m.Name)
			if err != nil {
				log.Fatal().Err(err).Msg("entity")
			}
			name, at, _ := strings.Cut(posed, ":")
			now, err := strconv.ParseInt(at, 10, 64)
			if err != nil {
				log.Fatal().Err(err).Str("pose", posed).Msg("pose time")
			}
			if !e.Switch(name, 0) {
				log.Fatal().Str("animation", name).Msg("cannot play")
			}
			if _, err := e.Update(now, s.NewCache()); err != nil {
				log.Fatal().Err(err).Msg("pose")
			}
			_, err = e.ExportGLTF(doc)
		} else {
			_, err = m.ExportGLTF(doc)
		}
		if err != nil {
			log.Fatal().Err(err).Msg("gltf")
		}

		f, err := os.Create(gltfOut)
		if err != nil {
			log.Fatal().Err(err).Msg("gltf")
		}
		defer f.Close()
		if err := gltfutils.ExportBinary(f, doc); err != nil {
			log.Fatal().Err(err).Msg("gltf")
		}
		log.Info().Str("file", gltfOut).Msg("gltf written")
	}
}
