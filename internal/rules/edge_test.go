package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/webcheck/internal/types"
)

const handlerPath = "supabase/functions/scrape-recipe/index.ts"

// secureHandler passes every edge function rule
const secureHandler = `import { serve } from "https://deno.land/std@0.168.0/http/server.ts";
import { createClient } from "https://esm.sh/@supabase/supabase-js@2";
import { corsHeaders } from "../_shared/cors.ts";

const ALLOWED_DOMAINS = ["ica.se", "koket.se"];
const MAX_IMAGE_SIZE = 10 * 1024 * 1024;

function isAllowedDomain(url: string): boolean {
  return ALLOWED_DOMAINS.some((d) => new URL(url).hostname.endsWith(d));
}

serve(async (req) => {
  const supabase = createClient(Deno.env.get("SUPABASE_URL")!, Deno.env.get("SUPABASE_ANON_KEY")!);
  const { data: { user } } = await supabase.auth.getUser();
  const { url, imageBase64 } = await req.json();
  if (!url) {
    throw new Error("url is required");
  }
  if (imageBase64 && imageBase64.length > MAX_IMAGE_SIZE) {
    throw new Error("image too large");
  }
  const res = await fetch(url);
  return new Response(await res.text(), { headers: corsHeaders });
});
`

func TestSecureHandlerHasNoFindings(t *testing.T) {
	findings := Default().Run(types.CategoryEdgeFunction, handlerPath, secureHandler)
	assert.Empty(t, findings)
}

func TestMissingAuth(t *testing.T) {
	content := "import x from 'y';\n\nserve(async (req) => {\n  return new Response('ok');\n});"
	findings := detectMissingAuth(content, handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 3, findings[0].Line)
	assert.Equal(t, "Edge Function 'scrape-recipe' lacks authentication check", findings[0].Message)

	// No serve( call: report on the first line
	findings = detectMissingAuth("Deno.serve(handler)", handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)

	findings = detectMissingAuth("export default async () => {}", handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)

	assert.Empty(t, detectMissingAuth("await supabase.auth.getUser();", handlerPath))
	assert.Empty(t, detectMissingAuth("await adminClient.auth.getUser(token);", handlerPath))
}

func TestMissingCORS(t *testing.T) {
	findings := detectMissingCORS("serve(() => new Response('x'))", handlerPath)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "may lack proper CORS headers")

	assert.Empty(t, detectMissingCORS("headers: corsHeaders", handlerPath))
	assert.Empty(t, detectMissingCORS("'Access-Control-Allow-Origin': '*'", handlerPath))
}

func TestMissingInputValidation(t *testing.T) {
	content := "serve(async (req) => {\n  const body = await req.json();\n  return go(body);\n});"
	findings := detectMissingInputValidation(content, handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Line)

	assert.Empty(t, detectMissingInputValidation(content+"\nif (!body.url) return bad();", handlerPath))
	assert.Empty(t, detectMissingInputValidation(content+"\nthrow new Error('bad');", handlerPath))
	assert.Empty(t, detectMissingInputValidation("serve(() => ok())", handlerPath))
}

func TestSensitiveLogging(t *testing.T) {
	content := "serve(async (req) => {\n  console.log('body', req.body);\n});"
	findings := detectSensitiveLogging(content, handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 2, findings[0].Line)
	assert.Equal(t, "Edge Function 'scrape-recipe' may log sensitive data", findings[0].Message)

	assert.Empty(t, detectSensitiveLogging("console.log('started')", handlerPath))
	assert.Empty(t, detectSensitiveLogging("const b = req.body;", handlerPath))
}

func TestUnprotectedFetch(t *testing.T) {
	content := "serve(async (req) => {\n  const { url } = await req.json();\n  const res = await fetch(url);\n});"
	findings := detectUnprotectedFetch(content, handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 3, findings[0].Line)
	assert.Contains(t, findings[0].Message, "SSRF")

	assert.Empty(t, detectUnprotectedFetch("const ALLOWED_DOMAINS = [];\nfetch(url)", handlerPath))
	assert.Empty(t, detectUnprotectedFetch("if (isAllowedDomain(url)) fetch(url)", handlerPath))
	assert.Empty(t, detectUnprotectedFetch("return ok();", handlerPath))
}

func TestMissingImageSizeCheck(t *testing.T) {
	content := "const { imageBase64 } = await req.json();\nawait analyze(imageBase64);"
	findings := detectMissingImageSizeCheck(content, handlerPath)
	require.Len(t, findings, 1)
	assert.Equal(t, 1, findings[0].Line)

	assert.Empty(t, detectMissingImageSizeCheck(content+"\nif (imageBase64.length > 1024) bail();", handlerPath))
	assert.Empty(t, detectMissingImageSizeCheck(content+"\nconst MAX_IMAGE_SIZE = 1;", handlerPath))
}
