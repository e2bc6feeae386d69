package rules

// Fix snippets are static text. They are never built from the offending
// file, so they are safe to print verbatim.

func fixVoidElement() string {
	return "Close void elements explicitly: <br />, <hr />, <img ... />, <input ... />"
}

func fixMissingKey() string {
	return `{items.map((item) => (
  <li key={item.id}>{item.name}</li>
))}`
}

func fixAuth() string {
	return `// Add authentication check
const authHeader = req.headers.get('Authorization');
if (!authHeader) {
  return new Response(JSON.stringify({ error: 'Unauthorized' }), {
    status: 401,
    headers: { ...corsHeaders, 'Content-Type': 'application/json' }
  });
}

const supabase = createClient(
  Deno.env.get('SUPABASE_URL')!,
  Deno.env.get('SUPABASE_ANON_KEY')!,
  { global: { headers: { Authorization: authHeader } } }
);

const { data: { user }, error } = await supabase.auth.getUser();
if (error || !user) {
  return new Response(JSON.stringify({ error: 'Invalid token' }), {
    status: 401,
    headers: { ...corsHeaders, 'Content-Type': 'application/json' }
  });
}`
}

func fixCORS() string {
	return `// Add CORS headers
const corsHeaders = {
  'Access-Control-Allow-Origin': '*',
  'Access-Control-Allow-Headers': 'authorization, x-client-info, apikey, content-type',
};`
}

func fixInputValidation() string {
	return `// Add input validation
const { param } = await req.json();

if (!param || typeof param !== 'string') {
  return new Response(JSON.stringify({ error: 'Invalid parameter' }), {
    status: 400,
    headers: { ...corsHeaders, 'Content-Type': 'application/json' }
  });
}`
}

func fixSensitiveLogging() string {
	return "Remove or sanitize logging of request body"
}

func fixSSRF() string {
	return `// Add SSRF protection
const ALLOWED_DOMAINS = ['example.com'];

function isAllowedDomain(url: string): boolean {
  try {
    const parsedUrl = new URL(url);
    return ALLOWED_DOMAINS.some(domain =>
      parsedUrl.hostname === domain ||
      parsedUrl.hostname.endsWith('.' + domain)
    );
  } catch {
    return false;
  }
}

if (!isAllowedDomain(url)) {
  return new Response(JSON.stringify({ error: 'Domain not allowed' }), {
    status: 403,
    headers: { ...corsHeaders, 'Content-Type': 'application/json' }
  });
}`
}

func fixImageSize() string {
	return `// Add size validation
const MAX_IMAGE_SIZE = 10 * 1024 * 1024; // 10 MB

if (imageBase64.length > MAX_IMAGE_SIZE) {
  return new Response(
    JSON.stringify({ error: 'Image too large. Maximum 10 MB allowed.' }),
    { status: 413, headers: { ...corsHeaders, 'Content-Type': 'application/json' } }
  );
}`
}

func fixRLS() string {
	return "ALTER TABLE <table_name> ENABLE ROW LEVEL SECURITY;"
}

func fixAuthUsers() string {
	return "Use user_roles table instead of direct auth.users access"
}

func fixRoleTable() string {
	return "Create user_roles table with SECURITY DEFINER function"
}

func fixUnsafeHTML() string {
	return `import DOMPurify from 'dompurify';

<div dangerouslySetInnerHTML={{ __html: DOMPurify.sanitize(html) }} />`
}

func fixHardcodedSecret() string {
	return "Move to environment variables (import.meta.env.VITE_*) or a server-side secret store"
}

func fixClientRoleCheck() string {
	return "Use server-side role validation via RLS policies"
}

func fixFetchTimeout() string {
	return `const controller = new AbortController();
const timeout = setTimeout(() => controller.abort(), 10000);
const res = await fetch(url, { signal: controller.signal });
clearTimeout(timeout);`
}

func fixJWT() string {
	return "Remove verify_jwt = false or set to true"
}

func fixValidationDependency() string {
	return "Add zod for runtime validation: npm install zod"
}
