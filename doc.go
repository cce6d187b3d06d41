// Package kiln is a batch pipeline engine for synthesizing structured
// LLM training and evaluation datasets (SFT, DPO, GRPO, function calling,
// dedup-filtered corpora).
//
// Records flow through an ordered, optionally branching chain of steps —
// sampling, column derivation, filtering, text/JSON generation, conversation
// assembly, deduplication, validation — and are materialized to an output
// sink (JSONL or CSV).
//
// The root package defines the types shared by every subsystem: the
// per-record [Context], chat [Message] wire types, the [Generator] and
// [Embedder] provider interfaces, the [TemplateEngine] and [Dataset]
// collaborator interfaces, and categorized errors. Pipelines are declared
// and run through the pipeline subpackage:
//
//	p, err := pipeline.New("qa").
//	    Workers(4).
//	    Dataset(questions).
//	    Generator("default", client).
//	    IterDataset("questions").
//	    Steps(
//	        pipeline.TextGeneration("answer", "default", "answer-prompt", "answer"),
//	        pipeline.WriteJSONL("out", "qa.jsonl", pipeline.Field("answer")),
//	    ).
//	    Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	report, err := p.Run(ctx)
package kiln
