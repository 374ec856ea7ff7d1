package mcp

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/minatonamikaze1763/DGSIGNER/internal/config"
	"github.com/minatonamikaze1763/DGSIGNER/internal/descriptions"
	"github.com/minatonamikaze1763/DGSIGNER/internal/sign"
)

// Server represents the MCP server instance
type Server struct {
	config      *config.Config
	fileService *sign.FileService
	mcpServer   *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, fileService *sign.FileService) (*Server, error) {
	if fileService == nil {
		return nil, fmt.Errorf("fileService cannot be nil")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
	)

	s := &Server{
		config:      cfg,
		fileService: fileService,
		mcpServer:   mcpServer,
	}

	// Register tools
	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	// Register PDF page info tool
	pdfPageInfoTool := mcp.NewTool(
		"pdf_page_info",
		mcp.WithDescription("Get page count and per-page dimensions in PDF points for a PDF document"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file (absolute, or relative to the working directory)"),
		),
	)
	s.mcpServer.AddTool(pdfPageInfoTool, s.handlePDFPageInfo)

	// Register PDF stamp file tool
	pdfStampFileTool := mcp.NewTool(
		"pdf_stamp_file",
		mcp.WithDescription("Stamp a signature image onto a rectangle of a PDF page and write a new {name}_signed.pdf"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PDF file to sign"),
		),
		mcp.WithString("image",
			mcp.Required(),
			mcp.Description("Path to the signature image (PNG, JPG, JPEG or GIF)"),
		),
		mcp.WithNumber("page",
			mcp.Description("Zero-based page index (defaults to 0)"),
		),
		mcp.WithNumber("x",
			mcp.Required(),
			mcp.Description("Left edge of the placement rectangle in points, from the page's left edge"),
		),
		mcp.WithNumber("y",
			mcp.Required(),
			mcp.Description("Bottom edge of the placement rectangle in points, from the page's bottom edge"),
		),
		mcp.WithNumber("width",
			mcp.Required(),
			mcp.Description("Width of the placement rectangle in points"),
		),
		mcp.WithNumber("height",
			mcp.Required(),
			mcp.Description("Height of the placement rectangle in points"),
		),
		mcp.WithNumber("rendered_width",
			mcp.Description("Rendered page width in pixels; when given with rendered_height, the rectangle is treated as screen pixels with a top-left origin"),
		),
		mcp.WithNumber("rendered_height",
			mcp.Description("Rendered page height in pixels"),
		),
	)
	s.mcpServer.AddTool(pdfStampFileTool, s.handlePDFStampFile)

	// Register PKCS#12 inspect tool
	p12InspectFileTool := mcp.NewTool(
		"p12_inspect_file",
		mcp.WithDescription("Inspect a PKCS#12 (.p12/.pfx) certificate container and report its contents without signing"),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the PKCS#12 container"),
		),
		mcp.WithString("password",
			mcp.Description("Container password (empty if the container is not password protected)"),
		),
	)
	s.mcpServer.AddTool(p12InspectFileTool, s.handleP12InspectFile)

	// Register server info tool
	serverInfoTool := mcp.NewTool(
		"signer_server_info",
		mcp.WithDescription("Get server information, available tools, and usage guidance"),
	)
	s.mcpServer.AddTool(serverInfoTool, s.handleServerInfo)
}

// Handler functions
func (s *Server) handlePDFPageInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.fileService.PageInfo(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(sign.StatusMessage(err)), nil
	}

	return mcp.NewToolResultText(s.formatPageInfoResult(result)), nil
}

func (s *Server) handlePDFStampFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	imagePath, err := request.RequireString("image")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()

	rect := sign.DocumentRect{}
	for _, field := range []struct {
		name string
		dst  *float64
	}{
		{"x", &rect.X},
		{"y", &rect.Y},
		{"width", &rect.Width},
		{"height", &rect.Height},
	} {
		v, ok := args[field.name].(float64)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("required argument %q not found or not a number", field.name)), nil
		}
		*field.dst = v
	}

	pageIndex := 0
	if p, ok := args["page"].(float64); ok {
		pageIndex = int(p)
	}

	req := sign.StampFileRequest{
		Path:      path,
		ImagePath: imagePath,
		PageIndex: pageIndex,
		Rect:      rect,
	}

	// With rendered dimensions the rectangle is screen pixels instead
	renderedW, wOK := args["rendered_width"].(float64)
	renderedH, hOK := args["rendered_height"].(float64)
	if wOK && hOK {
		req.Screen = &sign.ScreenRect{X: rect.X, Y: rect.Y, Width: rect.Width, Height: rect.Height}
		req.RenderedWidth = renderedW
		req.RenderedHeight = renderedH
	}

	result, err := s.fileService.StampFile(ctx, req, time.Now())
	if err != nil {
		return mcp.NewToolResultError(sign.StatusMessage(err)), nil
	}

	return mcp.NewToolResultText(s.formatStampFileResult(result, rect)), nil
}

func (s *Server) handleP12InspectFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	password := ""
	if p, ok := request.GetArguments()["password"].(string); ok {
		password = p
	}

	result, err := s.fileService.InspectContainerFile(ctx, path, password)
	if err != nil {
		return mcp.NewToolResultError(sign.StatusMessage(err)), nil
	}

	return mcp.NewToolResultText(s.formatInspectionResult(path, result)), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

// Formatting methods
func (s *Server) formatPageInfoResult(result *sign.PageInfoResult) string {
	text := fmt.Sprintf("PDF Page Information for: %s\n", result.Path)
	text += fmt.Sprintf("Pages: %d\n", result.Pages)
	text += "\nPage dimensions (points, bottom-left origin):\n"
	for i, dims := range result.Sizes {
		text += fmt.Sprintf("%d. %.2f x %.2f\n", i+1, dims.Width, dims.Height)
	}
	return text
}

func (s *Server) formatStampFileResult(result *sign.StampFileResult, rect sign.DocumentRect) string {
	text := "Signature stamped successfully\n"
	text += fmt.Sprintf("Input: %s\n", result.InputPath)
	text += fmt.Sprintf("Output: %s\n", result.OutputPath)
	text += fmt.Sprintf("Page: %d\n", result.PageIndex+1)
	text += fmt.Sprintf("Placement: x=%.2f y=%.2f width=%.2f height=%.2f (points)\n", rect.X, rect.Y, rect.Width, rect.Height)
	text += fmt.Sprintf("Size: %d bytes\n", result.Size)
	text += "\nThe input document was not modified."
	return text
}

func (s *Server) formatInspectionResult(path string, result *sign.InspectionResult) string {
	text := fmt.Sprintf("PKCS#12 Container: %s\n", path)
	text += fmt.Sprintf("Certificates: %d\n", result.CertificateCount)
	text += fmt.Sprintf("Private keys: %d\n", result.PrivateKeyCount)

	for i, cert := range result.Certificates {
		text += fmt.Sprintf("\nCertificate %d:\n", i+1)
		text += fmt.Sprintf("  Subject: %s\n", cert.Subject)
		text += fmt.Sprintf("  Issuer: %s\n", cert.Issuer)
		text += fmt.Sprintf("  Valid: %s to %s\n",
			cert.NotBefore.Format("2006-01-02"), cert.NotAfter.Format("2006-01-02"))
	}

	text += "\nNo key material was extracted and no signing was performed."
	return text
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Working Directory: %s\n", s.fileService.WorkDirectory())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.fileService.MaxFileSize()/(1024*1024))

	text += "\n🛠️  Available Tools:\n"
	for _, tool := range []struct {
		name       string
		usage      string
		parameters string
	}{
		{
			name:       "pdf_page_info",
			usage:      "Use this tool to get page count and dimensions before computing a placement rectangle.",
			parameters: "path (required): Path to the PDF file",
		},
		{
			name: "pdf_stamp_file",
			usage: "Use this tool to embed a signature image into a PDF page. Writes " +
				"{name}_signed.pdf next to the input; the input is never modified.",
			parameters: "path (required), image (required), page (optional, zero-based), " +
				"x, y, width, height (required, points, bottom-left origin)",
		},
		{
			name:       "p12_inspect_file",
			usage:      "Use this tool to report certificate and key counts plus subject/issuer of a PKCS#12 container.",
			parameters: "path (required), password (optional)",
		},
		{
			name:       "signer_server_info",
			usage:      "Use this tool to get server capabilities and configuration.",
			parameters: "No parameters required",
		},
	} {
		text += fmt.Sprintf("\n• %s\n", tool.name)
		text += fmt.Sprintf("  Description: %s\n", descriptions.GetToolDescription(tool.name))
		text += fmt.Sprintf("  Usage: %s\n", tool.usage)
		text += fmt.Sprintf("  Parameters: %s\n", tool.parameters)
	}

	text += "\n🖼️  Supported Image Formats:\n"
	for _, format := range []string{"PNG", "JPG/JPEG", "GIF"} {
		text += fmt.Sprintf("  • %s\n", format)
	}

	text += s.usageGuidance()
	return text
}

func (s *Server) usageGuidance() string {
	return fmt.Sprintf(`
Visual Signing Usage Guide:

1. INSPECT THE DOCUMENT:
   - Use 'pdf_page_info' to get the page count and the dimensions of the target page

2. COMPUTE THE PLACEMENT:
   - Coordinates are in PDF points with the origin at the bottom-left of the page
   - The signature image is stretched to exactly the rectangle you provide

3. STAMP:
   - Use 'pdf_stamp_file' to write the signed copy; the original file is never touched
   - A caption line with the stamping timestamp is placed below the rectangle

4. CERTIFICATES:
   - Use 'p12_inspect_file' to check a PKCS#12 container's contents
   - This server performs no cryptographic signing and no certificate validation

Limits: files up to %d MB, paths confined to the working directory.`,
		s.fileService.MaxFileSize()/(1024*1024))
}

// Run starts the MCP server over standard I/O. HTTP mode is served by
// the web package; callers route on the configured mode before this.
func (s *Server) Run(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting signer MCP server in stdio mode")
		log.Printf("Working directory: %s", s.fileService.WorkDirectory())
	}

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
