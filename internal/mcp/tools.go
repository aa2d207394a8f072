package mcp

import "github.com/mark3labs/mcp-go/mcp"

var stringItems = mcp.Items(map[string]any{"type": "string"})

var encodeToolDef = mcp.NewTool("datauri_encode",
	mcp.WithDescription("Encode a local image or file as a Base64 data URI and split it into fragments. "+
		"Images are re-encoded as JPEG; with compression on they are downscaled to max_size on the long edge. "+
		"Returns the fragment list and a BLAKE3 digest to pass back to datauri_save."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path of the file to encode")),
	mcp.WithString("kind", mcp.Enum("image", "file"), mcp.Description("Treat the source as an image or a plain file; detected when omitted")),
	mcp.WithNumber("quality", mcp.Description("JPEG quality in (0, 1]; presets 0.3, 0.5, 0.7, 0.9")),
	mcp.WithNumber("max_size", mcp.Description("Long-edge pixel limit; presets 128, 256, 512, 1024")),
	mcp.WithNumber("chunk_size", mcp.Description("Fragment length in characters; presets 10000, 20000, 30000, 50000")),
	mcp.WithBoolean("compress", mcp.Description("Resize and recompress images (default true)")),
	mcp.WithBoolean("include_data_uri", mcp.Description("Include the complete data URI (default true)")),
)

var chunkToolDef = mcp.NewTool("datauri_chunk",
	mcp.WithDescription("Split text into fixed-size fragments. Concatenating the fragments in order gives the text back."),
	mcp.WithString("text", mcp.Required(), mcp.Description("Text to split")),
	mcp.WithNumber("size", mcp.Required(), mcp.Description("Fragment length in characters (> 0)")),
)

var inspectToolDef = mcp.NewTool("datauri_inspect",
	mcp.WithDescription("Validate a data URI (or its fragments) and report MIME type, sizes, and where datauri_save would store it. Writes nothing."),
	mcp.WithString("text", mcp.Description("Complete data URI")),
	mcp.WithArray("fragments", stringItems, mcp.Description("Fragments in order, instead of text")),
	mcp.WithString("digest", mcp.Description("Expected BLAKE3 digest from datauri_encode")),
)

var saveToolDef = mcp.NewTool("datauri_save",
	mcp.WithDescription("Decode a data URI and save it: images go to the gallery, anything else to a file in the output directory."),
	mcp.WithString("text", mcp.Description("Complete data URI")),
	mcp.WithArray("fragments", stringItems, mcp.Description("Fragments in order, instead of text")),
	mcp.WithString("digest", mcp.Description("Expected BLAKE3 digest; nothing is written on mismatch")),
)

var galleryListToolDef = mcp.NewTool("gallery_list",
	mcp.WithDescription("List gallery assets, newest first."),
	mcp.WithNumber("limit", mcp.Description("Page size (default 20, max 100)")),
	mcp.WithNumber("offset", mcp.Description("Items to skip")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted assets")),
)

var galleryFetchToolDef = mcp.NewTool("gallery_fetch",
	mcp.WithDescription("Fetch one gallery asset, optionally re-encoded as a data URI with fragment info."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Asset id")),
	mcp.WithBoolean("include_data", mcp.Description("Include the asset as a data URI")),
	mcp.WithNumber("chunk_size", mcp.Description("Describe fragments of this size when include_data is set")),
)

var galleryExportToolDef = mcp.NewTool("gallery_export",
	mcp.WithDescription("Write a gallery asset to a file in the output directory (or an allowed path)."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Asset id")),
	mcp.WithString("path", mcp.Description("Destination; default <output_dir>/asset_<id><ext>")),
)

var galleryDeleteToolDef = mcp.NewTool("gallery_delete",
	mcp.WithDescription("Soft-delete a gallery asset."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Asset id")),
)

var galleryPurgeToolDef = mcp.NewTool("gallery_purge",
	mcp.WithDescription("Permanently remove soft-deleted gallery assets."),
	mcp.WithNumber("older_than_days", mcp.Description("Only purge assets deleted more than this many days ago")),
)

var galleryBackupToolDef = mcp.NewTool("gallery_backup",
	mcp.WithDescription("Write every gallery asset to a JSONL backup file that gallery_restore can load."),
	mcp.WithString("path", mcp.Description("Destination; default <output_dir>/gallery-<timestamp>.jsonl")),
	mcp.WithBoolean("include_deleted", mcp.Description("Include soft-deleted assets")),
)

var galleryRestoreToolDef = mcp.NewTool("gallery_restore",
	mcp.WithDescription("Load assets from a gallery_backup file. Sizes, dimensions and digests are recomputed."),
	mcp.WithString("path", mcp.Required(), mcp.Description("Backup file")),
	mcp.WithString("mode", mcp.Enum("error", "replace", "rename"),
		mcp.Description("On id collision: error (default, writes nothing), replace, or rename")),
)
