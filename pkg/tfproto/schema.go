// Package tfproto carries the TensorFlow Serving protocol. The upstream .proto schema under proto/
// is compiled once at start-up; requests and responses are dynamic messages built from it and sent
// with grpc's standard proto codec.
package tfproto

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"

	"github.com/bufbuild/protocompile"
	"github.com/bufbuild/protocompile/linker"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const protoRoot = "proto"

//go:embed proto
var protoFiles embed.FS

var schema = mustCompile()

func mustCompile() linker.Resolver {
	files, err := Compile(context.Background())
	if err != nil {
		panic(err)
	}
	return files.AsResolver()
}

// Compile parses and links every embedded .proto file. Well-known imports such as
// google/protobuf/wrappers.proto resolve to the descriptors linked into the binary.
func Compile(ctx context.Context) (linker.Files, error) {
	var paths []string
	err := fs.WalkDir(protoFiles, protoRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(p, ".proto") {
			paths = append(paths, strings.TrimPrefix(p, protoRoot+"/"))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("tfproto: listing schema: %w", err)
	}
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: func(p string) (io.ReadCloser, error) {
				return protoFiles.Open(path.Join(protoRoot, p))
			},
		}),
	}
	files, err := compiler.Compile(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("tfproto: compiling schema: %w", err)
	}
	return files, nil
}

// Descriptor returns the message descriptor called name. It panics when the schema has no such
// message: names are compile-time constants of this package.
func Descriptor(name protoreflect.FullName) protoreflect.MessageDescriptor {
	d, err := schema.FindDescriptorByName(name)
	if err != nil {
		panic(fmt.Sprintf("tfproto: message %s: %v", name, err))
	}
	md, ok := d.(protoreflect.MessageDescriptor)
	if !ok {
		panic(fmt.Sprintf("tfproto: %s is not a message", name))
	}
	return md
}

// New allocates an empty message of the named type.
func New(name protoreflect.FullName) *dynamicpb.Message {
	return dynamicpb.NewMessage(Descriptor(name))
}

// Method resolves a gRPC method path such as "/tensorflow.serving.PredictionService/Predict".
// It returns nil for a method the schema does not declare.
func Method(fullMethod string) protoreflect.MethodDescriptor {
	name := strings.Replace(strings.TrimPrefix(fullMethod, "/"), "/", ".", 1)
	d, err := schema.FindDescriptorByName(protoreflect.FullName(name))
	if err != nil {
		return nil
	}
	md, _ := d.(protoreflect.MethodDescriptor)
	return md
}

// NewReply allocates the response message of fullMethod.
func NewReply(fullMethod string) *dynamicpb.Message {
	md := Method(fullMethod)
	if md == nil {
		panic(fmt.Sprintf("tfproto: unknown method %s", fullMethod))
	}
	return dynamicpb.NewMessage(md.Output())
}

func enumDescriptor(name protoreflect.FullName) protoreflect.EnumDescriptor {
	d, err := schema.FindDescriptorByName(name)
	if err != nil {
		panic(fmt.Sprintf("tfproto: enum %s: %v", name, err))
	}
	return d.(protoreflect.EnumDescriptor)
}
