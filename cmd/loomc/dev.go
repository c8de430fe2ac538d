package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/loomkit/loom/internal/config"
	"github.com/loomkit/loom/pkg/compiler"
	"github.com/loomkit/loom/pkg/compiler/parse"
)

// devServer watches the templates directory, recompiles changed templates,
// and pushes reload events to connected browsers over a websocket.
type devServer struct {
	host string
	port int
	cfg  *config.Config

	watcher *fsnotify.Watcher

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
	upgrader  websocket.Upgrader

	buildMutex sync.Mutex
}

func newDevCommand() *cobra.Command {
	var port int
	var host string
	var cwd string

	cmd := &cobra.Command{
		Use:   "dev",
		Short: "Start the development server",
		Long: `Starts a development server that serves compiled templates, watches the
templates directory, recompiles on change, and live-reloads connected
browsers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cwd != "" {
				if err := os.Chdir(cwd); err != nil {
					return fmt.Errorf("failed to change directory to %s: %w", cwd, err)
				}
			}
			return runDev(host, port)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to run the dev server on (default: loom.yaml dev.port)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind the dev server to (default: loom.yaml dev.host)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "Working directory of the project (defaults to current)")

	return cmd
}

func runDev(host string, port int) error {
	cfg := loadConfig(".")

	// CLI takes precedence over loom.yaml.
	if port != 0 {
		cfg.Dev.Port = port
	} else {
		port = cfg.Dev.Port
	}
	if host != "" {
		cfg.Dev.Host = host
	} else {
		host = cfg.Dev.Host
	}

	server := &devServer{
		host:      host,
		port:      port,
		cfg:       cfg,
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	server.watcher = watcher

	if err := server.setupWatcher(); err != nil {
		return fmt.Errorf("failed to setup watcher: %w", err)
	}

	log.Println("🧵 Compiling templates...")
	if err := server.compileAll(); err != nil {
		log.Printf("⚠️  Initial compile: %v", err)
		// Keep serving; the watcher recompiles as templates are fixed.
	}

	go server.watchFiles()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.handleWebSocket)
	mux.HandleFunc("/", server.serveArtifacts)

	addr := fmt.Sprintf("%s:%d", host, port)
	log.Printf("✨ Dev server running at http://%s\n", addr)

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("\n🛑 Shutting down dev server...")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *devServer) setupWatcher() error {
	return filepath.Walk(s.cfg.TemplatesDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if path != s.cfg.TemplatesDir && (strings.HasPrefix(info.Name(), ".") || info.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return s.watcher.Add(path)
		}
		return nil
	})
}

func (s *devServer) watchFiles() {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer

	var pendingEvents []fsnotify.Event
	var mu sync.Mutex

	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			// New directories need watching too.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					s.watcher.Add(event.Name)
					continue
				}
			}

			if !s.isRelevantFile(event.Name) {
				continue
			}

			mu.Lock()
			pendingEvents = append(pendingEvents, event)
			mu.Unlock()

			// Reset debounce timer
			debounce.Reset(100 * time.Millisecond)

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Println("Watcher error:", err)

		case <-debounce.C:
			mu.Lock()
			events := pendingEvents
			pendingEvents = nil
			mu.Unlock()

			if len(events) > 0 {
				s.handleFileChanges(events)
			}
		}
	}
}

func (s *devServer) isRelevantFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".css"
}

// handleFileChanges recompiles the templates behind a debounced batch of
// events. A stylesheet change recompiles its sibling template because the
// companion stylesheet list is part of the generated module.
func (s *devServer) handleFileChanges(events []fsnotify.Event) {
	changed := make(map[string]bool)
	for _, event := range events {
		name := event.Name
		if strings.ToLower(filepath.Ext(name)) == ".css" {
			name = strings.TrimSuffix(name, filepath.Ext(name)) + ".html"
		}
		if abs, err := filepath.Abs(name); err == nil {
			name = abs
		}
		changed[name] = true
	}

	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	units, err := discoverTemplates(s.cfg)
	if err != nil {
		log.Printf("❌ Failed to scan templates: %v", err)
		return
	}

	recompiled := 0
	failed := 0
	for _, u := range units {
		abs, err := filepath.Abs(u.Path)
		if err != nil {
			abs = u.Path
		}
		if !changed[abs] {
			continue
		}
		log.Printf("🔄 Recompiling %s...", u.Identity)
		if err := s.compileUnit(u); err != nil {
			failed++
			log.Printf("❌ %s: %v", u.Identity, err)
			s.notifyClients("error", map[string]interface{}{
				"template": u.Identity,
				"message":  err.Error(),
			})
			continue
		}
		recompiled++
	}

	if recompiled > 0 && failed == 0 {
		log.Printf("✅ Recompiled %d template(s), reloading...", recompiled)
		s.notifyClients("reload", map[string]interface{}{
			"target": "templates",
		})
	}
}

// compileAll compiles every discovered template once at startup.
func (s *devServer) compileAll() error {
	s.buildMutex.Lock()
	defer s.buildMutex.Unlock()

	units, err := discoverTemplates(s.cfg)
	if err != nil {
		return err
	}
	if len(units) == 0 {
		log.Printf("⚠️  No templates found under %s", s.cfg.TemplatesDir)
		return nil
	}

	failed := 0
	for _, u := range units {
		if err := s.compileUnit(u); err != nil {
			failed++
			log.Printf("❌ %s: %v", u.Identity, err)
		}
	}
	log.Printf("  Compiled %d of %d template(s)", len(units)-failed, len(units))
	if failed > 0 {
		return fmt.Errorf("%d template(s) failed to compile", failed)
	}
	return nil
}

func (s *devServer) compileUnit(u templateUnit) error {
	src, err := os.ReadFile(u.Path)
	if err != nil {
		return err
	}
	res := compiler.Compile(parse.Source{Name: u.Path, Content: string(src)}, compiler.Options{
		Identity:         u.Identity,
		PublicProperties: s.cfg.PropsFor(u.Identity),
		NativeShadow:     s.cfg.NativeShadow(),
		Stylesheets:      u.Stylesheets,
	})
	if len(res.Diagnostics) > 0 {
		printDiagnostics(res.Diagnostics)
		return fmt.Errorf("%d error(s)", len(res.Diagnostics))
	}
	if res.Err != nil {
		return res.Err
	}
	return writeArtifact(s.cfg, u.Identity, res.Program.Code)
}

func (s *devServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	// Register client
	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			conn.WriteJSON(map[string]interface{}{
				"type": "ACK",
			})
		default:
			log.Printf("Unknown WebSocket message type: %v", msg["type"])
		}
	}
}

func (s *devServer) notifyClients(msgType string, data map[string]interface{}) {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	message := map[string]interface{}{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("Failed to send message to client: %v", err)
		}
	}
}

// serveArtifacts serves compiled modules out of the output directory with
// caching disabled so reloads always see fresh output.
func (s *devServer) serveArtifacts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	http.FileServer(http.Dir(s.cfg.OutDir)).ServeHTTP(w, r)
}
