// Copyright 2025 AnswerDesk Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package resolve answers visitor questions through tiered resolution.
//
// The Engine type applies strict tier precedence, each tier
// short-circuiting on a hit:
//
//  1. Manual override, exact question hash
//  2. Manual override, embedding similarity
//  3. Automated cache, exact question hash
//  4. Automated cache, embedding similarity
//  5. Hybrid chunk retrieval (cosine blended with lexical overlap)
//     feeding an LLM completion
//
// Generated answers are cached asynchronously for reuse, and answers
// that admit inability to help get the chatbot's escalation contact
// appended. Embedding failures degrade resolution to hash-only matching
// and lexical retrieval rather than failing it.
package resolve
