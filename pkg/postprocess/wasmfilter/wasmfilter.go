// Package wasmfilter post-processes pieces with a WASI module run by
// WasmEdge. The module must export alloc(len) ptr, dealloc(ptr, len) and
// an entry point entry(inPtr, inLen, outParams) len that writes the output
// pointer and length as two little-endian int32s at outParams.
package wasmfilter

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/second-state/WasmEdge-go/wasmedge"

	"github.com/PhantomInTheWire/puzzle-pipeline/pkg/logging"
)

// DefaultEntry is the export called on each piece.
const DefaultEntry = "grayscale"

var loadPlugins sync.Once

// Processor runs the filter on piece files using a fixed pool of VMs.
type Processor struct {
	entry string
	vms   chan *wasmedge.VM
	all   []*wasmedge.VM
}

// New loads wasmPath into workers VMs. Call Close to release them.
func New(wasmPath, entry string, workers int) (*Processor, error) {
	loadPlugins.Do(func() {
		wasmedge.SetLogErrorLevel()
		wasmedge.LoadPluginDefaultPaths()
	})
	if entry == "" {
		entry = DefaultEntry
	}
	if workers < 1 {
		workers = 1
	}

	p := &Processor{entry: entry, vms: make(chan *wasmedge.VM, workers)}
	for i := 0; i < workers; i++ {
		vm, err := newVM(wasmPath)
		if err != nil {
			p.Close()
			return nil, err
		}
		p.all = append(p.all, vm)
		p.vms <- vm
	}
	logging.Logger().Info("loaded wasm filter", "module", wasmPath, "entry", entry, "vms", workers)
	return p, nil
}

func newVM(wasmPath string) (*wasmedge.VM, error) {
	conf := wasmedge.NewConfigure(wasmedge.WASI)
	defer conf.Release()
	vm := wasmedge.NewVMWithConfig(conf)
	if err := vm.LoadWasmFile(wasmPath); err != nil {
		vm.Release()
		return nil, fmt.Errorf("load %s: %w", wasmPath, err)
	}
	if err := vm.Validate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("validate %s: %w", wasmPath, err)
	}
	if err := vm.Instantiate(); err != nil {
		vm.Release()
		return nil, fmt.Errorf("instantiate %s: %w", wasmPath, err)
	}
	return vm, nil
}

func (p *Processor) Name() string { return "wasm:" + p.entry }

// Process filters the piece at path and overwrites it with the result.
func (p *Processor) Process(ctx context.Context, path string) error {
	in, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var vm *wasmedge.VM
	select {
	case <-ctx.Done():
		return ctx.Err()
	case vm = <-p.vms:
	}
	out, err := run(vm, p.entry, in)
	p.vms <- vm
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return os.WriteFile(path, out, 0o644)
}

// Close releases every VM in the pool.
func (p *Processor) Close() {
	for _, vm := range p.all {
		vm.Release()
	}
	p.all = nil
}

func run(vm *wasmedge.VM, entry string, in []byte) ([]byte, error) {
	inLen := int32(len(in))
	allocRes, err := vm.Execute("alloc", inLen)
	if err != nil {
		return nil, fmt.Errorf("alloc input: %w", err)
	}
	inPtr := allocRes[0].(int32)
	defer vm.Execute("dealloc", inPtr, inLen)

	mem := vm.GetActiveModule().FindMemory("memory")
	if mem == nil {
		return nil, fmt.Errorf("module exports no memory")
	}
	inData, err := mem.GetData(uint(inPtr), uint(inLen))
	if err != nil {
		return nil, fmt.Errorf("mem input: %w", err)
	}
	copy(inData, in)

	paramsRes, err := vm.Execute("alloc", int32(8))
	if err != nil {
		return nil, fmt.Errorf("alloc params: %w", err)
	}
	paramsPtr := paramsRes[0].(int32)
	defer vm.Execute("dealloc", paramsPtr, int32(8))

	lenRes, err := vm.Execute(entry, inPtr, inLen, paramsPtr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", entry, err)
	}
	if lenRes[0].(int32) == 0 {
		return nil, fmt.Errorf("zero length output")
	}

	paramBytes, err := mem.GetData(uint(paramsPtr), 8)
	if err != nil {
		return nil, fmt.Errorf("mem params: %w", err)
	}
	outPtr, outLen := outputParams(paramBytes)
	defer vm.Execute("dealloc", outPtr, outLen)

	outData, err := mem.GetData(uint(outPtr), uint(outLen))
	if err != nil {
		return nil, fmt.Errorf("mem output: %w", err)
	}
	out := make([]byte, outLen)
	copy(out, outData)
	return out, nil
}

// outputParams decodes the (ptr, len) pair the entry point writes.
func outputParams(b []byte) (ptr, length int32) {
	return int32(binary.LittleEndian.Uint32(b[0:4])), int32(binary.LittleEndian.Uint32(b[4:8]))
}
