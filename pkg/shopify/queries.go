package shopify

// GraphQL 文档
const (
	stagedUploadsCreateMutation = `mutation stagedUploadsCreate($input: [StagedUploadInput!]!) {
  stagedUploadsCreate(input: $input) {
    stagedTargets { url resourceUrl parameters { name value } }
    userErrors { field message }
  }
}`

	fileCreateMutation = `mutation fileCreate($files: [FileCreateInput!]!) {
  fileCreate(files: $files) {
    files {
      __typename
      id
      fileStatus
      ... on MediaImage { image { url } }
      ... on GenericFile { url }
    }
    userErrors { field message }
  }
}`

	fileNodeQuery = `query fileNode($id: ID!) {
  node(id: $id) {
    __typename
    id
    ... on MediaImage { fileStatus image { url } }
    ... on GenericFile { fileStatus url }
  }
}`

	productDescriptionQuery = `query productDescription($id: ID!) {
  product(id: $id) { id descriptionHtml }
}`

	productUpdateMutation = `mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product { id descriptionHtml }
    userErrors { field message }
  }
}`

	activeSubscriptionsQuery = `query activeSubscriptions {
  currentAppInstallation {
    activeSubscriptions { id name status }
  }
}`

	appSubscriptionCreateMutation = `mutation appSubscriptionCreate($name: String!, $returnUrl: URL!, $test: Boolean, $trialDays: Int, $lineItems: [AppSubscriptionLineItemInput!]!) {
  appSubscriptionCreate(name: $name, returnUrl: $returnUrl, test: $test, trialDays: $trialDays, lineItems: $lineItems) {
    confirmationUrl
    appSubscription { id name status }
    userErrors { field message }
  }
}`

	shopNameQuery = `query shopName { shop { name } }`
)
