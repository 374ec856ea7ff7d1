package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	PDFPageInfoDescription = `Get page count and per-page dimensions (in PDF points) for a PDF document.

**When to use:** Before placing a signature, when you need the coordinate space of a page, or to verify a document is readable at all.

**Why it's useful:** Signature placement works in page points with a bottom-left origin. Knowing the exact page size is what lets you convert an on-screen selection into a correct placement rectangle.

**Examples:**
• Placement preparation: "Get page dimensions of contract.pdf so I can position a signature on page 2"
• Document check: "Verify agreement.pdf opens and report its page count"
• Coordinate math: "What is the height in points of page 1 of lease.pdf?"

**Common workflows:**
1. Visual Signing: Get page info → Compute placement rectangle → Stamp with pdf_stamp_file
2. Pre-flight: Check page count → Reject out-of-range page requests early
3. Layout Review: Inspect dimensions → Detect landscape/rotated pages before stamping

**Best practices:** Run this first for any stamping workflow; placement rectangles outside the page area produce clipped or invisible stamps.`

	PDFStampFileDescription = `Stamp a signature image onto a rectangle of a PDF page and write a new "{name}_signed.pdf" file.

**When to use:** You have a PDF and a signature image (PNG, JPG, JPEG or GIF) and want the image embedded visually at an exact position.

**Why it's useful:** The image is stretched to exactly the rectangle you give, a caption line with the stamping timestamp is added below it, and the original file is never modified. The operation is all-or-nothing: on any failure the output file is not written.

**Examples:**
• Sign a contract: "Stamp signature.png onto contract.pdf page 1 at x=100 y=642 width=200 height=50"
• Initial every page: "Stamp initials.jpg at the bottom-right of each page of policy.pdf"
• Approve a drawing: "Place approved-stamp.gif on blueprint.pdf page 3"

**Common workflows:**
1. Visual Signing: pdf_page_info → compute rectangle in points → pdf_stamp_file → deliver the _signed copy
2. Review & Approve: Inspect document → Stamp approval mark → Archive both versions
3. Batch-free Signing: Stamp one document at a time; the tool never touches other files

**Best practices:** Coordinates are in PDF points with a bottom-left origin. The image is stretched without preserving aspect ratio, so pick a rectangle matching the image's proportions if distortion matters.`

	P12InspectFileDescription = `Inspect a PKCS#12 (.p12/.pfx) certificate container and report its contents without signing anything.

**When to use:** You received a certificate bundle and want to know what is inside: how many certificates and private keys it holds and who the leaf certificate identifies.

**Why it's useful:** Reports certificate and key counts plus the subject and issuer distinguished names of the first certificate, without extracting or using any key material.

**Examples:**
• Identity check: "Whose certificate is in signer.p12? Password is 'changeit'"
• Bundle audit: "How many certificates does company.pfx contain?"
• Troubleshooting: "Check if legacy.p12 opens with the password we have on file"

**Common workflows:**
1. Pre-signing Check: Inspect container → Confirm expected identity → Proceed with external signing tooling
2. Credential Audit: Inspect each container → Record subjects and issuers → Flag unexpected entries
3. Support: Reproduce a user's "wrong password" report → Confirm whether the container or the password is at fault

**Best practices:** A wrong password and a corrupted container are indistinguishable by design; both report the container as unreadable. This tool performs no cryptographic signing and no certificate chain validation.`

	SignerServerInfoDescription = `Get real-time server status, available tools, and signing capabilities.

**When to use:** Starting a session with the signer, troubleshooting, or discovering what the server can do.

**Why it's useful:** Reports the server version, configured working directory, file size limits, and the full tool list so you can plan a workflow without trial and error.

**Examples:**
• Session startup: "Check the signer is ready before stamping a batch of contracts"
• Debugging: "Verify the working directory the server resolves relative paths against"
• Discovery: "List the available tools and supported image formats"

**Common workflows:**
1. Session Startup: Check server info → Verify limits → Plan stamping approach
2. Debugging: Review configuration → Check directory paths → Retry the failing call
3. Integration: Read capabilities → Generate client-side tool bindings

**Best practices:** Run at the start of sessions; the reported max file size applies to both documents and signature images.`
)

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	"pdf_page_info":      PDFPageInfoDescription,
	"pdf_stamp_file":     PDFStampFileDescription,
	"p12_inspect_file":   P12InspectFileDescription,
	"signer_server_info": SignerServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns a list of all available tool names
func GetAllToolNames() []string {
	var names []string
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	return names
}
