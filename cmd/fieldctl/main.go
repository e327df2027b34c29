// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0
//
// This package provides the field device controller service.
//
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/circutor/fieldctl/internal/api"
	"github.com/circutor/fieldctl/internal/config"
	"github.com/circutor/fieldctl/internal/controller"

	// Blank-import every driver package so its init() registers its
	// protocol_kind tag with internal/channel's registry; the channel
	// manager only knows drivers this binary has linked in.
	_ "github.com/circutor/fieldctl/internal/drivers/computercontrol"
	_ "github.com/circutor/fieldctl/internal/drivers/custom"
	_ "github.com/circutor/fieldctl/internal/drivers/hspowersequencer"
	_ "github.com/circutor/fieldctl/internal/drivers/misc"
	_ "github.com/circutor/fieldctl/internal/drivers/mock"
	_ "github.com/circutor/fieldctl/internal/drivers/modbus"
	_ "github.com/circutor/fieldctl/internal/drivers/modbusslave"
	_ "github.com/circutor/fieldctl/internal/drivers/novastar"
	_ "github.com/circutor/fieldctl/internal/drivers/pjlink"
	_ "github.com/circutor/fieldctl/internal/drivers/screennjlgplc"
	_ "github.com/circutor/fieldctl/internal/drivers/xinkeq1"
)

const serviceName = "fieldctl"

func main() {
	var confDir string

	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flag.StringVar(&confDir, "confdir", "", "Specify an alternate configuration directory.")
	flag.StringVar(&confDir, "c", "", "Specify an alternate configuration directory.")
	flag.Parse()

	if err := run(confDir); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(confDir string) error {
	cfg, err := config.LoadConfig(confDir)
	if err != nil {
		return err
	}

	ctrl, err := controller.New(cfg)
	if err != nil {
		return err
	}
	defer ctrl.Stop()

	router := api.NewRouter(ctrl)
	addr := ":" + strconv.Itoa(int(cfg.WebServer.Port))

	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		fmt.Fprintf(os.Stdout, "%s listening on %s\n", serviceName, addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "http server error: %v\n", err)
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	sig := <-ch
	fmt.Fprintf(os.Stderr, "exiting on %s signal.\n", sig)

	return nil
}
