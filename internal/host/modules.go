package host

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dekarrin/pastprint/rewrite"
)

// Modules provides the source of modules the interpreter imports.
type Modules interface {
	// Find returns the path of the file that provides the dotted module
	// name, looking in each directory of searchPath in order.
	Find(module string, searchPath []string) (string, error)

	// Load returns the source to compile for the file at path.
	Load(ctx context.Context, path string) (string, error)
}

type moduleRequest struct {
	Module string   `json:"module"`
	Path   []string `json:"path"`
}

type moduleReply struct {
	Path   string       `json:"path,omitempty"`
	Source string       `json:"source,omitempty"`
	Error  *moduleError `json:"error,omitempty"`
}

// moduleError is raised in the interpreter as an exception of class Type.
type moduleError struct {
	Type     string `json:"type"`
	Msg      string `json:"msg"`
	Filename string `json:"filename,omitempty"`
	Lineno   int    `json:"lineno,omitempty"`
	Offset   int    `json:"offset,omitempty"`
	Text     string `json:"text,omitempty"`
}

// moduleServer answers the requests of the module finder installed in the
// interpreter. Requests and replies are single lines of JSON on a pair of
// pipes.
type moduleServer struct {
	modules Modules

	requests *os.File
	replies  *os.File

	// the ends given to the child
	childRequests *os.File
	childReplies  *os.File

	done chan struct{}
}

func newModuleServer(m Modules) (*moduleServer, error) {
	reqR, reqW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create module request pipe: %w", err)
	}
	repR, repW, err := os.Pipe()
	if err != nil {
		reqR.Close()
		reqW.Close()
		return nil, fmt.Errorf("create module reply pipe: %w", err)
	}

	return &moduleServer{
		modules:       m,
		requests:      reqR,
		replies:       repW,
		childRequests: reqW,
		childReplies:  repR,
		done:          make(chan struct{}),
	}, nil
}

// childFiles returns the files to give the child, in descriptor order.
func (ms *moduleServer) childFiles() []*os.File {
	return []*os.File{ms.childRequests, ms.childReplies}
}

// start closes the child's ends in this process and begins answering
// requests until the child closes its end.
func (ms *moduleServer) start() {
	ms.childRequests.Close()
	ms.childReplies.Close()
	go ms.serve(ms.requests, ms.replies)
}

// close releases the pipes of a server that was never started.
func (ms *moduleServer) close() {
	for _, f := range []*os.File{ms.requests, ms.replies, ms.childRequests, ms.childReplies} {
		f.Close()
	}
}

// wait blocks until the server is done and releases its pipes.
func (ms *moduleServer) wait() {
	<-ms.done
	ms.requests.Close()
}

func (ms *moduleServer) serve(r io.Reader, w io.WriteCloser) {
	defer close(ms.done)
	defer w.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for sc.Scan() {
		var reply moduleReply
		var req moduleRequest
		if err := json.Unmarshal(sc.Bytes(), &req); err != nil {
			log.Warningf("bad module request: %s", err)
			reply.Error = &moduleError{Type: "ImportError", Msg: err.Error()}
		} else {
			reply = ms.answer(context.Background(), req)
		}

		if err := enc.Encode(reply); err != nil {
			log.Errorf("sending module reply: %s", err)
			return
		}
	}
	if err := sc.Err(); err != nil {
		log.Errorf("reading module requests: %s", err)
	}
}

// answer finds and loads the requested module. A module that cannot be found
// gets an empty reply so that the interpreter looks for it itself.
func (ms *moduleServer) answer(ctx context.Context, req moduleRequest) moduleReply {
	path, err := ms.modules.Find(req.Module, req.Path)
	if err != nil {
		log.Debugf("%s: %s", req.Module, err)
		return moduleReply{}
	}

	src, err := ms.modules.Load(ctx, path)
	if err != nil {
		var se *rewrite.SyntaxError
		if errors.As(err, &se) {
			return moduleReply{Error: &moduleError{
				Type:     "SyntaxError",
				Msg:      se.Message(),
				Filename: se.Filename(),
				Lineno:   se.Line(),
				Offset:   se.Position(),
				Text:     se.SourceLine(),
			}}
		}
		return moduleReply{Error: &moduleError{Type: "ImportError", Msg: err.Error()}}
	}

	return moduleReply{Path: path, Source: src}
}
