package router

import (
	"github.com/go-rod/rod/lib/proto"

	"github.com/surfbridge/surf/internal/bridgeerr"
	"github.com/surfbridge/surf/internal/protocol"
)

func handleEmulateNetwork(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	offline, _ := args["offline"].(bool)
	latency, _ := args["latencyMs"].(float64)
	down, _ := args["downloadKbps"].(float64)
	up, _ := args["uploadKbps"].(float64)

	err := proto.NetworkEmulateNetworkConditions{
		Offline:            offline,
		Latency:            latency,
		DownloadThroughput: down * 1024 / 8,
		UploadThroughput:   up * 1024 / 8,
	}.Call(ts.page)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "emulate network", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("network emulation applied")}}, nil
}

func handleEmulateCPU(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	rate, _ := args["rate"].(float64)
	if rate <= 0 {
		rate = 1
	}
	err := proto.EmulationSetCPUThrottlingRate{Rate: rate}.Call(ts.page)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "emulate cpu", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("cpu throttling applied")}}, nil
}

func handleEmulateGeolocation(r *Router, ts *tabSession, args map[string]any) (*protocol.Result, error) {
	lat, _ := args["latitude"].(float64)
	lon, _ := args["longitude"].(float64)
	accuracy := 1.0
	err := proto.EmulationSetGeolocationOverride{Latitude: &lat, Longitude: &lon, Accuracy: &accuracy}.Call(ts.page)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.Capability, "emulate geolocation", err)
	}
	return &protocol.Result{Content: []protocol.ContentPart{protocol.Text("geolocation overridden")}}, nil
}
