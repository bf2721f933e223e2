// Package databroker is a runtime data broker for geospatial processing
// toolkits: the layer through which processing modules and embedding
// hosts exchange tables, grids and matrices without caring whether the
// data lives in a file, a stream, a raw descriptor or another module's
// memory.
//
// # Architecture Overview
//
// The module is organized into packages with distinct responsibilities:
//
//	databroker/          Root package, documentation only
//	├── broker/          Sessions, resource registry, ownership GC,
//	│                    virtual files and the record-by-record engine
//	├── container/       In-memory data containers (datasets, text sets,
//	│                    matrices, vectors, grids) with ownership bookkeeping
//	├── family/          Data family, geometry, method and direction vocabulary
//	├── record/          The unit of record-by-record exchange
//	├── codec/           ASCII table parsing/formatting, transparent
//	│                    gzip/zstd file access, CBOR snapshots
//	├── config/          Session defaults from YAML
//	└── errors/          Structured error types with phase and code
//
// # Quick Start
//
// Concatenate a file into memory record by record:
//
//	ses, err := broker.New("host", 2, broker.NoExit)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ses.Destroy()
//
//	_, err = ses.Register(family.Dataset, family.MethodFile,
//	    family.GeomPoint, family.In, "track.txt")
//	name, err := ses.OpenVirtualFile(family.Dataset, family.GeomPoint,
//	    family.Out, nil)
//
//	ses.BeginIO(family.Dataset, family.In, record.ModeData)
//	ses.BeginIO(family.Dataset, family.Out, record.ModeData)
//	for {
//	    rec, err := ses.GetRecord(record.ModeData)
//	    if rec.Kind == record.KindEOF {
//	        break
//	    }
//	    ses.PutRecord(record.ModeData, rec)
//	}
//	ses.EndIO(family.In)
//	ses.EndIO(family.Out)
//
//	payload, err := ses.ReadVirtualFile(name)
//
// Sessions are single-threaded; create one session per goroutine or
// synchronize externally.
package databroker
