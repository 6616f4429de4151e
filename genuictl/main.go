package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/docopt/docopt-go"
	"golang.org/x/term"

	"github.com/jacobsimionato/genui"
)

const GenUiCtlVersion = "0.0.1"

var Out *log.Logger
var Err *log.Logger

func init() {
	Out = log.New(os.Stdout, "", 0)
	Err = log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile)
}

func main() {
	usage := `GenUI control.

Usage:
    genuictl validate --messages=<file>
    genuictl replay --messages=<file> [--surface=<surface_id>]
    genuictl connect --url=<url> [--token=<token>] [--app_version=<version>]
    genuictl functions

Options:
    -h --help                  Show this screen.
    --version                  Show version.
    --messages=<file>          Newline-delimited server message file.
    --surface=<surface_id>     Only print this surface.
    --url=<url>                Agent websocket url, e.g. wss://agent.example.com/genui.
    --token=<token>            Session jwt. Prompted for when not given.
    --app_version=<version>    App version advertised to the agent.`

	opts, err := docopt.ParseArgs(usage, os.Args[1:], GenUiCtlVersion)
	if err != nil {
		panic(err)
	}

	if validate_, _ := opts.Bool("validate"); validate_ {
		validate(opts)
	} else if replay_, _ := opts.Bool("replay"); replay_ {
		replay(opts)
	} else if connect_, _ := opts.Bool("connect"); connect_ {
		connect(opts)
	} else if functions_, _ := opts.Bool("functions"); functions_ {
		functions(opts)
	}
}

func readMessages(opts docopt.Opts) []*genui.ServerMessage {
	path, _ := opts.String("--messages")
	f, err := os.Open(path)
	if err != nil {
		Err.Fatalf("Could not open %s (%s)", path, err)
	}
	defer f.Close()

	messages := []*genui.ServerMessage{}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber += 1
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		message, err := genui.DecodeServerMessage([]byte(line))
		if err != nil {
			Err.Fatalf("Bad message on line %d (%s)", lineNumber, err)
		}
		messages = append(messages, message)
	}
	if err := scanner.Err(); err != nil {
		Err.Fatalf("Could not read %s (%s)", path, err)
	}
	return messages
}

func validate(opts docopt.Opts) {
	messages := readMessages(opts)
	counts := map[string]int{}
	for _, message := range messages {
		switch {
		case message.SurfaceUpdate != nil:
			counts["surfaceUpdate"] += 1
		case message.BeginRendering != nil:
			counts["beginRendering"] += 1
		case message.DataModelUpdate != nil:
			counts["dataModelUpdate"] += 1
		case message.SurfaceDeletion != nil:
			counts["surfaceDeletion"] += 1
		}
	}
	Out.Printf("%d messages ok", len(messages))
	for _, kind := range []string{"surfaceUpdate", "beginRendering", "dataModelUpdate", "surfaceDeletion"} {
		if count := counts[kind]; 0 < count {
			Out.Printf("    %s: %d", kind, count)
		}
	}
}

func replay(opts docopt.Opts) {
	messages := readMessages(opts)

	registry := genui.NewSurfaceRegistry(context.Background())
	defer registry.Close()

	for i, message := range messages {
		if err := registry.Dispatch(message); err != nil {
			Err.Fatalf("Dispatch failed at message %d (%s)", i+1, err)
		}
	}

	onlySurfaceId, _ := opts.String("--surface")
	for _, surfaceId := range registry.SurfaceIds() {
		if onlySurfaceId != "" && surfaceId != onlySurfaceId {
			continue
		}
		surface := registry.Get(surfaceId)
		definition := surface.Definition()
		data, err := surface.Model().Read(genui.RootPath)
		if err != nil {
			Err.Fatalf("Could not read surface %s (%s)", surfaceId, err)
		}
		out := map[string]any{
			"surfaceId":       surfaceId,
			"rootComponentId": definition.RootComponentId,
			"components":      definition.Components,
			"data":            data,
		}
		outJson, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			Err.Fatalf("Could not encode surface %s (%s)", surfaceId, err)
		}
		Out.Printf("%s", outJson)
	}
}

func connect(opts docopt.Opts) {
	url, _ := opts.String("--url")
	token, _ := opts.String("--token")
	if token == "" {
		fmt.Print("session token: ")
		tokenBytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			Err.Fatalf("Could not read token (%s)", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	appVersion, _ := opts.String("--app_version")

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := genui.NewSurfaceRegistry(cancelCtx)
	defer registry.Close()

	registry.AddLifecycleCallback(func(event *genui.SurfaceLifecycleEvent) {
		Out.Printf("surface %s %s", event.Kind, event.SurfaceId)
	})

	auth := &genui.SessionAuth{
		ByJwt:      token,
		InstanceId: genui.NewId(),
		AppVersion: appVersion,
	}
	transport := genui.NewClientTransportWithDefaults(cancelCtx, url, auth, registry, nil)
	defer transport.Close()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}

func functions(opts docopt.Opts) {
	registry := genui.NewClientFunctionRegistryWithDefaults()
	for _, function := range registry.Functions() {
		Out.Printf("%s (%s): %s", function.Name(), function.ReturnType(), function.Description())
	}
}
