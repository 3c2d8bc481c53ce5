// E2E Benchmark Server for Telegraph
// This server runs a plain echo observer on a fixed port so external
// WebSocket load tools (or the e2e_load driver pointed at a remote host)
// can measure real send → echo roundtrip latency.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/telegraph-go/telegraph"
)

func main() {
	port := flag.Uint("port", 8766, "port to listen on")
	flag.Parse()

	srv := telegraph.New(nil)
	srv.SetObserver(&echoObserver{server: srv})

	// Manual test page with an in-browser latency probe.
	srv.GET("/", func(*telegraph.Request) *telegraph.Response {
		resp := telegraph.Text(http.StatusOK, benchmarkPage)
		return resp.WithHeader("Content-Type", "text/html; charset=utf-8")
	})
	srv.GET("/healthz", func(*telegraph.Request) *telegraph.Response {
		return telegraph.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	if err := srv.Start(uint16(*port)); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("E2E Benchmark Server running at http://localhost:%d\n", srv.Port())
	fmt.Printf("WebSocket endpoint: ws://localhost:%d/bench\n", srv.Port())

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	srv.Stop()
}

// echoObserver sends every received message straight back.
type echoObserver struct {
	telegraph.NoopObserver
	server *telegraph.Server
}

func (o *echoObserver) OnWebSocketMessage(id string, msg telegraph.Message) {
	if msg.IsText() {
		o.server.SendText(id, msg.Text)
		return
	}
	o.server.SendData(id, msg.Data)
}

const benchmarkPage = `<!DOCTYPE html>
<html>
<head><title>Telegraph E2E Benchmark</title></head>
<body>
<h1>Telegraph Echo Latency Probe</h1>
<button id="go">Send 100 pings</button>
<pre id="out"></pre>
<script>
const out = document.getElementById('out');
const ws = new WebSocket('ws://' + location.host + '/bench');
let pending = null;
ws.onmessage = (e) => { if (pending) { pending(e.data); pending = null; } };
document.getElementById('go').onclick = async () => {
  const rtts = [];
  for (let i = 0; i < 100; i++) {
    const token = 'probe:' + i + ':' + Math.random();
    const start = performance.now();
    const echoed = new Promise((resolve) => { pending = resolve; });
    ws.send(token);
    await echoed;
    rtts.push(performance.now() - start);
  }
  rtts.sort((a, b) => a - b);
  out.textContent = 'p50: ' + rtts[49].toFixed(2) + 'ms\n' +
                    'p95: ' + rtts[94].toFixed(2) + 'ms\n' +
                    'max: ' + rtts[99].toFixed(2) + 'ms';
};
</script>
</body>
</html>`
