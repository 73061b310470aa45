package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/docsight/mcp-pdf-highlighter/internal/config"
	"github.com/docsight/mcp-pdf-highlighter/internal/library"
	"github.com/docsight/mcp-pdf-highlighter/internal/search"
	"github.com/docsight/mcp-pdf-highlighter/internal/viewer"
)

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	library    *library.Library
	controller *viewer.Controller
	mcpServer  *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, lib *library.Library, controller *viewer.Controller) (*Server, error) {
	if lib == nil {
		return nil, fmt.Errorf("library cannot be nil")
	}
	if controller == nil {
		return nil, fmt.Errorf("controller cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:     cfg,
		library:    lib,
		controller: controller,
		mcpServer:  mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	listTool := mcp.NewTool(
		"pdf_list_documents",
		mcp.WithDescription("List PDF files available in the configured document directory"),
		mcp.WithString("query",
			mcp.Description("Optional case-insensitive file name filter"),
		),
	)
	s.mcpServer.AddTool(listTool, s.handleListDocuments)

	openTool := mcp.NewTool(
		"pdf_open",
		mcp.WithDescription("Open a PDF document for searching and highlighting"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file, absolute or relative to the document directory"),
		),
	)
	s.mcpServer.AddTool(openTool, s.handleOpen)

	infoTool := mcp.NewTool(
		"pdf_document_info",
		mcp.WithDescription("Show page count, page dimensions and rotation of the open document"),
	)
	s.mcpServer.AddTool(infoTool, s.handleDocumentInfo)

	searchTool := mcp.NewTool(
		"pdf_search",
		mcp.WithDescription("Search the open document for a term and highlight every occurrence"),
		mcp.WithString("term",
			mcp.Required(),
			mcp.Description("Text to search for"),
		),
		mcp.WithBoolean("case_sensitive",
			mcp.Description("Match case exactly (default false)"),
		),
	)
	s.mcpServer.AddTool(searchTool, s.handleSearch)

	nextTool := mcp.NewTool(
		"pdf_next_result",
		mcp.WithDescription("Move to the next search result, wrapping past the last result to the first"),
	)
	s.mcpServer.AddTool(nextTool, s.handleNextResult)

	previousTool := mcp.NewTool(
		"pdf_previous_result",
		mcp.WithDescription("Move to the previous search result, wrapping past the first result to the last"),
	)
	s.mcpServer.AddTool(previousTool, s.handlePreviousResult)

	showPageTool := mcp.NewTool(
		"pdf_show_page",
		mcp.WithDescription("Turn a view to a specific page"),
		mcp.WithNumber("page",
			mcp.Required(),
			mcp.Description("1-based page number"),
		),
		mcp.WithString("view",
			mcp.Description("Which view to page: 'original' (default) or 'highlighted'"),
		),
	)
	s.mcpServer.AddTool(showPageTool, s.handleShowPage)

	switchModeTool := mcp.NewTool(
		"pdf_switch_mode",
		mcp.WithDescription("Switch between overlay highlights and the composed highlighted document"),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Highlight mode: 'overlay' or 'new-document'"),
		),
	)
	s.mcpServer.AddTool(switchModeTool, s.handleSwitchMode)

	setColorTool := mcp.NewTool(
		"pdf_set_color",
		mcp.WithDescription("Change the highlight color"),
		mcp.WithString("color",
			mcp.Required(),
			mcp.Description("Hex RGB color, e.g. #FFFF00"),
		),
	)
	s.mcpServer.AddTool(setColorTool, s.handleSetColor)

	saveTool := mcp.NewTool(
		"pdf_save_highlighted",
		mcp.WithDescription("Compose the highlighted copy of the open document and save it as a new PDF"),
		mcp.WithString("path",
			mcp.Description("Output file path within the document directory (defaults to a _highlighted suffix)"),
		),
	)
	s.mcpServer.AddTool(saveTool, s.handleSaveHighlighted)

	clearTool := mcp.NewTool(
		"pdf_clear_highlights",
		mcp.WithDescription("Clear the current search results and highlights"),
	)
	s.mcpServer.AddTool(clearTool, s.handleClearHighlights)

	serverInfoTool := mcp.NewTool(
		"pdf_server_info",
		mcp.WithDescription("Get server information, available tools, directory contents, and usage guidance"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	query := ""
	if q, ok := args["query"].(string); ok {
		query = q
	}

	entries, err := s.library.List(query, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(entries) == 0 {
		text := fmt.Sprintf("No PDF files found in directory: %s", s.library.Root())
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", len(entries), s.library.Root())
	if query != "" {
		text += fmt.Sprintf("Search query: %s\n", query)
	}
	text += "\nFiles:\n"
	for i, entry := range entries {
		text += fmt.Sprintf("%d. %s\n", i+1, entry.Name)
		text += fmt.Sprintf("   Path: %s\n", entry.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", entry.Size)
		text += fmt.Sprintf("   Modified: %s\n", entry.Modified.Format("2006-01-02 15:04:05"))
		if i < len(entries)-1 {
			text += "\n"
		}
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleOpen(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	abs, err := s.library.Resolve(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.library.Validate(abs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.controller.LoadFile(ctx, abs); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc := s.controller.Document()
	text := fmt.Sprintf("Opened %s\n", doc.Name)
	text += fmt.Sprintf("Pages: %d\n", doc.PageCount)
	text += "Use pdf_search to find and highlight text."
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleDocumentInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc := s.controller.Document()
	if doc == nil {
		return mcp.NewToolResultError(viewer.ErrNoDocument.Error()), nil
	}

	text := fmt.Sprintf("Document: %s\n", doc.Name)
	text += fmt.Sprintf("Path: %s\n", doc.Path)
	text += fmt.Sprintf("Fingerprint: %s\n", doc.Fingerprint)
	text += fmt.Sprintf("Pages: %d\n\n", doc.PageCount)
	for i := range doc.Pages {
		page := &doc.Pages[i]
		text += fmt.Sprintf("Page %d: %.2f x %.2f pt", page.Number, page.Width, page.Height)
		if page.Rotation != 0 {
			text += fmt.Sprintf(", rotated %d°", page.Rotation)
		}
		text += fmt.Sprintf(", %d text runs\n", len(page.Runs))
	}

	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	term, err := request.RequireString("term")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	caseSensitive := false
	if cs, ok := args["case_sensitive"].(bool); ok {
		caseSensitive = cs
	}

	result, err := s.controller.Search(term, caseSensitive)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(s.formatSearchResult(result)), nil
}

func (s *Server) handleNextResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.controller.NextResult()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatNavigation(nav)), nil
}

func (s *Server) handlePreviousResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nav, err := s.controller.PreviousResult()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatNavigation(nav)), nil
}

func (s *Server) handleShowPage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	pageArg, ok := args["page"].(float64)
	if !ok {
		return mcp.NewToolResultError("page must be a number"), nil
	}
	page := int(pageArg)

	view := viewer.ViewOriginal
	if v, ok := args["view"].(string); ok && v != "" {
		switch v {
		case string(viewer.ViewOriginal):
			view = viewer.ViewOriginal
		case string(viewer.ViewHighlighted):
			view = viewer.ViewHighlighted
		default:
			return mcp.NewToolResultError(fmt.Sprintf("unknown view %q", v)), nil
		}
	}

	if s.controller.Document() == nil {
		return mcp.NewToolResultError(viewer.ErrNoDocument.Error()), nil
	}

	s.controller.ShowPage(page, view)
	nav := s.controller.Navigation()

	current := nav.OriginalPage
	if view == viewer.ViewHighlighted {
		current = nav.HighlightedPage
	}
	if current != page {
		return mcp.NewToolResultText(fmt.Sprintf("Page %d is out of range; still on page %d of the %s view.", page, current, view)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Showing page %d of the %s view.", page, view)), nil
}

func (s *Server) handleSwitchMode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modeArg, err := request.RequireString("mode")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	mode := viewer.Mode(modeArg)
	if err := s.controller.SwitchMode(ctx, mode); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Switched to %s mode.", mode)
	if mode == viewer.ModeNewDocument {
		if doc := s.controller.Highlighted(); doc != nil {
			text += fmt.Sprintf(" Highlighted document ready with %d pages.", doc.PageCount)
		}
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleSetColor(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	color, err := request.RequireString("color")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := s.controller.SetColor(color); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Highlight color set to %s.", color)), nil
}

func (s *Server) handleSaveHighlighted(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	data, err := s.controller.HighlightedBytes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	outPath := filepath.Join(s.config.PDFDirectory, s.controller.DownloadName())
	if p, ok := args["path"].(string); ok && p != "" {
		// Writes obey the same containment rule as reads.
		resolved, err := s.library.Resolve(p)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		outPath = resolved
	}

	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to write highlighted document: %v", err)), nil
	}

	text := fmt.Sprintf("Saved highlighted document to %s (%d bytes).", outPath, len(data))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleClearHighlights(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.controller.Document() == nil {
		return mcp.NewToolResultError(viewer.ErrNoDocument.Error()), nil
	}
	s.controller.ClearHighlights()
	return mcp.NewToolResultText("Highlights cleared."), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("%s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("Document Directory: %s\n", s.library.Root())
	text += fmt.Sprintf("Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("Highlight Color: %s (opacity %.2f)\n", s.config.HighlightColor, s.config.HighlightOpacity)
	text += fmt.Sprintf("Emphasis Color: %s\n\n", s.config.EmphasisColor)

	entries, err := s.library.List("", 10)
	if err == nil && len(entries) > 0 {
		text += fmt.Sprintf("Directory Contents (first %d PDF files):\n", len(entries))
		for i, entry := range entries {
			text += fmt.Sprintf("   %d. %s (%d bytes)\n", i+1, entry.Name, entry.Size)
		}
		text += "\n"
	} else {
		text += "Directory Contents: No PDF files found in document directory\n\n"
	}

	text += "Available Tools:\n"
	for _, tool := range toolGuide() {
		text += fmt.Sprintf("\n• %s\n", tool.name)
		text += fmt.Sprintf("  %s\n", tool.description)
	}

	text += "\nTypical workflow:\n"
	text += "  1. pdf_list_documents to find a file\n"
	text += "  2. pdf_open to load it\n"
	text += "  3. pdf_search to highlight a term\n"
	text += "  4. pdf_next_result / pdf_previous_result to walk the matches\n"
	text += "  5. pdf_switch_mode mode=new-document to bake highlights into a copy\n"
	text += "  6. pdf_save_highlighted to write the copy to disk\n"

	return mcp.NewToolResultText(text), nil
}

type toolInfo struct {
	name        string
	description string
}

func toolGuide() []toolInfo {
	return []toolInfo{
		{"pdf_list_documents", "List PDF files in the document directory, with an optional name filter"},
		{"pdf_open", "Open a PDF document for searching and highlighting"},
		{"pdf_document_info", "Show page count, dimensions and rotation of the open document"},
		{"pdf_search", "Search the open document and highlight every occurrence of a term"},
		{"pdf_next_result", "Move to the next search result (wraps around)"},
		{"pdf_previous_result", "Move to the previous search result (wraps around)"},
		{"pdf_show_page", "Turn the original or highlighted view to a specific page"},
		{"pdf_switch_mode", "Switch between overlay highlights and the composed highlighted document"},
		{"pdf_set_color", "Change the highlight color"},
		{"pdf_save_highlighted", "Save the highlighted copy as a new PDF file"},
		{"pdf_clear_highlights", "Clear search results and highlights"},
		{"pdf_server_info", "Show this information"},
	}
}

// Formatting methods
func (s *Server) formatSearchResult(result *search.Result) string {
	text := fmt.Sprintf("Found %d match(es) for %q", result.Total(), result.Term)
	if result.CaseSensitive {
		text += " (case-sensitive)"
	}
	text += "\n\n"

	for i := range result.Pages {
		pr := &result.Pages[i]
		text += fmt.Sprintf("Page %d: %d match(es)\n", pr.Page, len(pr.Matches))
		for j, m := range pr.Matches {
			context := m.Text
			if len(context) > 60 {
				context = context[:60] + "..."
			}
			text += fmt.Sprintf("   %d. %q at (%.1f, %.1f)\n", j+1, context, m.Bounds.X, m.Bounds.Y)
		}
	}

	nav := s.controller.Navigation()
	text += fmt.Sprintf("\nActive result: 1 of %d (page %d).", result.Total(), nav.OriginalPage)
	return text
}

func (s *Server) formatNavigation(nav viewer.NavigationState) string {
	result := s.controller.Result()
	if result == nil {
		return "No active search."
	}

	page, local, _ := result.Resolve(nav.GlobalIndex)
	text := fmt.Sprintf("Active result: %d of %d (page %d, match %d on page).",
		nav.GlobalIndex+1, result.Total(), page, local+1)
	if nav.Mode == viewer.ModeNewDocument {
		text += fmt.Sprintf(" Highlighted view is on page %d.", nav.HighlightedPage)
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting PDF highlighter MCP server in stdio mode")
		log.Printf("Document directory: %s", s.library.Root())
	}

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode runs the server in HTTP server mode
func (s *Server) runServerMode(ctx context.Context) error {
	// The mark3labs library owns the transport; stdio is the only one wired
	// up for now.
	log.Printf("Server mode not yet implemented with mark3labs/mcp-go")
	log.Printf("Falling back to stdio mode")
	return s.runStdioMode(ctx)
}
