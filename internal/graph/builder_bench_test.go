package graph

import (
	"context"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/mvp-joe/codeanalyzer/internal/callgraph"
	"github.com/mvp-joe/codeanalyzer/internal/registry"
)

// benchGraph builds a call graph of n application methods where method i
// calls the next three, every call site twice.
func benchGraph(n int) (*callgraph.Graph, *registry.Registry) {
	reg := registry.New()
	cg := &callgraph.Graph{}
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("m%d", i)
		reg.Put("bench.Chain", name+"()", declared(name+"()", "void "+name+"()", 1))
		cg.Methods = append(cg.Methods, callgraph.Method{
			Class: "bench/Chain", Name: name, Descriptor: "()V", Application: true,
		})
	}
	for i := 0; i < n; i++ {
		node := callgraph.Node{Method: i}
		for j := 1; j <= 3 && i+j < n; j++ {
			site := callgraph.CallSite{Targets: []int{i + j}}
			node.CallSites = append(node.CallSites, site, site)
		}
		cg.Nodes = append(cg.Nodes, node)
	}
	return cg, reg
}

func BenchmarkBuilder_Build(b *testing.B) {
	for _, n := range []int{100, 1000} {
		b.Run(fmt.Sprintf("methods=%d", n), func(b *testing.B) {
			logger := logrus.New()
			logger.SetLevel(logrus.WarnLevel)
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				cg, reg := benchGraph(n)
				if _, err := NewBuilder(reg, WithLogger(logger)).Build(context.Background(), cg); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkSearcher_Query(b *testing.B) {
	cg, reg := benchGraph(1000)
	edges, err := NewBuilder(reg).Build(context.Background(), cg)
	if err != nil {
		b.Fatal(err)
	}
	s, err := NewSearcher(edges)
	if err != nil {
		b.Fatal(err)
	}

	req := &QueryRequest{Operation: OperationCallees, Target: "bench.Chain.m0()", Depth: MaxDepth}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.Query(context.Background(), req); err != nil {
			b.Fatal(err)
		}
	}
}
