package host

import (
	"fmt"
	"os"
	"strings"
)

const (
	// inputPromptStart and inputPromptEnd frame the prompt of input() on the
	// interpreter's stderr.
	inputPromptStart = '\x02'
	inputPromptEnd   = '\x03'

	// file descriptors of the module pipes in the child
	moduleRequestFD = 3
	moduleReplyFD   = 4
)

const startupPrompts = `import sys
sys.ps1 = %s
sys.ps2 = %s
del sys
`

// input() writes its prompt to stdout when stdin is not a terminal, where it
// cannot be told apart from output.
const startupInput = `
def _pastprint_input():
    import builtins, sys

    def read(prompt=''):
        sys.stdout.flush()
        sys.stderr.write('\x02' + str(prompt) + '\x03')
        sys.stderr.flush()
        line = sys.stdin.readline()
        if not line:
            raise EOFError
        return line[:-1] if line.endswith('\n') else line

    builtins.input = read

_pastprint_input()
del _pastprint_input
`

const startupModules = `
def _pastprint_modules(requests, replies):
    import importlib.abc, importlib.util, json, os, sys, sysconfig, threading

    library = set()
    for key in ('stdlib', 'platstdlib', 'purelib', 'platlib'):
        p = sysconfig.get_paths().get(key)
        if p:
            library.add(os.path.realpath(p))

    def wanted(d):
        d = os.path.realpath(d or os.getcwd())
        return not any(d == lib or d.startswith(lib + os.sep) for lib in library)

    req = os.fdopen(requests, 'w', encoding='utf-8')
    rep = os.fdopen(replies, 'r', encoding='utf-8')
    lock = threading.RLock()

    class Loader(importlib.abc.SourceLoader):
        def __init__(self, path, source):
            self.path = path
            self.source = source

        def get_filename(self, fullname):
            return self.path

        def get_data(self, path):
            with open(path, 'rb') as f:
                return f.read()

        def source_to_code(self, data, path, *, _optimize=-1):
            return compile(self.source, path, 'exec', dont_inherit=True, optimize=_optimize)

    class Finder(importlib.abc.MetaPathFinder):
        def find_spec(self, fullname, path=None, target=None):
            dirs = sys.path if path is None else path
            dirs = [d or os.getcwd() for d in dirs if isinstance(d, str) and wanted(d)]
            if not dirs:
                return None
            with lock:
                req.write(json.dumps({'module': fullname, 'path': dirs}) + '\n')
                req.flush()
                reply = json.loads(rep.readline() or '{}')
            err = reply.get('error')
            if err:
                if err.get('type') == 'SyntaxError':
                    raise SyntaxError(err['msg'], (err['filename'], err['lineno'], err['offset'], err['text']))
                raise ImportError(err['msg'], name=fullname)
            origin = reply.get('path')
            if not origin:
                return None
            search = None
            if os.path.basename(origin) == '__init__.py':
                search = [os.path.dirname(origin)]
            return importlib.util.spec_from_file_location(
                fullname, origin, loader=Loader(origin, reply['source']),
                submodule_search_locations=search)

    sys.meta_path.insert(0, Finder())

_pastprint_modules(%d, %d)
del _pastprint_modules
`

// the startup file is run as the script and runs the real one in its place
const startupScript = `
def _pastprint_script(path, name):
    import os, sys
    here = os.path.dirname(os.path.abspath(__file__))
    if sys.path and os.path.realpath(sys.path[0]) == os.path.realpath(here):
        sys.path[0] = os.path.dirname(os.path.abspath(name))
    sys.argv[0] = name
    globals()['__file__'] = name
    with open(path, encoding='utf-8') as f:
        return compile(f.read(), name, 'exec', dont_inherit=True)

_pastprint_code = _pastprint_script(%s, %s)
del _pastprint_script
exec(globals().pop('_pastprint_code'))
`

// startupCode returns the Python code that prepares the interpreter for opts.
// It sets the prompts, sends input() prompts to stderr, installs the module
// finder if opts has Modules, and runs the script if opts has one.
func startupCode(opts Options) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(startupPrompts, pyQuote(opts.PS1), pyQuote(opts.PS2)))
	sb.WriteString(startupInput)
	if opts.Modules != nil {
		sb.WriteString(fmt.Sprintf(startupModules, moduleRequestFD, moduleReplyFD))
	}
	if opts.Script != "" {
		name := opts.ScriptName
		if name == "" {
			name = opts.Script
		}
		sb.WriteString(fmt.Sprintf(startupScript, pyQuote(opts.Script), pyQuote(name)))
	}
	return sb.String()
}

// writeStartup writes the startup code for opts to a file and returns its
// path.
func writeStartup(opts Options) (string, error) {
	f, err := os.CreateTemp("", "pastprint-startup-*.py")
	if err != nil {
		return "", fmt.Errorf("create startup file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(startupCode(opts)); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("write startup file: %w", err)
	}
	return f.Name(), nil
}

// pyQuote returns s as a Python string literal.
func pyQuote(s string) string {
	var sb strings.Builder
	sb.WriteByte('\'')
	for _, r := range s {
		switch {
		case r == '\\' || r == '\'':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		case r == '\n':
			sb.WriteString(`\n`)
		case r == '\t':
			sb.WriteString(`\t`)
		case r < 0x20:
			sb.WriteString(fmt.Sprintf(`\x%02x`, r))
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('\'')
	return sb.String()
}
