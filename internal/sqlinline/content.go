package sqlinline

const QInsertContentRequest = `--sql c3322428-76a2-487a-97c6-5d7222a51841
insert into content_requests(
  id,
  title,
  description,
  target_audience,
  duration,
  style,
  scene_amount,
  tone,
  locale,
  services,
  status,
  progress_percentage,
  current_step,
  created_at,
  updated_at
) values (
  $1::uuid, $2, $3, $4, $5::int, $6, $7::int, $8, $9, $10::jsonb,
  $11, $12::int, $13, $14, $14
);
`

const QSelectContentRequest = `--sql 89e688a5-a03b-4ef0-9a66-ca1c7bd318fa
select
  id::text as id,
  title,
  description,
  target_audience,
  duration,
  style,
  scene_amount,
  tone,
  locale,
  services,
  status,
  progress_percentage,
  current_step,
  generated_content,
  generated_picture,
  generated_voice,
  generated_music,
  generated_video,
  error_message,
  error_step,
  created_at,
  updated_at
from content_requests
where id = $1::uuid
limit 1;
`

// QLockContentRequest must run inside a transaction; the row lock
// serializes concurrent orchestration updates.
const QLockContentRequest = `--sql 168c1676-f461-40bc-9c8f-d7e6561b7fe9
select
  id::text as id,
  title,
  description,
  target_audience,
  duration,
  style,
  scene_amount,
  tone,
  locale,
  services,
  status,
  progress_percentage,
  current_step,
  generated_content,
  generated_picture,
  generated_voice,
  generated_music,
  generated_video,
  error_message,
  error_step,
  created_at,
  updated_at
from content_requests
where id = $1::uuid
for update;
`

const QUpdateContentRequest = `--sql b35af539-dede-4cc6-8e38-af9e06b58f27
update content_requests
set status = $2,
    progress_percentage = $3::int,
    current_step = $4,
    generated_content = $5::jsonb,
    generated_picture = $6,
    generated_voice = $7,
    generated_music = $8,
    generated_video = $9,
    error_message = $10,
    error_step = $11,
    updated_at = $12
where id = $1::uuid;
`

const QListContentRequests = `--sql 7409aaae-ecc2-4b6d-aeb1-05b67ac44a3f
select
  id::text as id,
  title,
  description,
  target_audience,
  duration,
  style,
  scene_amount,
  tone,
  locale,
  services,
  status,
  progress_percentage,
  current_step,
  generated_content,
  generated_picture,
  generated_voice,
  generated_music,
  generated_video,
  error_message,
  error_step,
  created_at,
  updated_at
from content_requests
order by created_at desc, id desc
limit $1::int offset $2::int;
`

const QListStaleContentRequests = `--sql e530f955-b59a-4561-837e-918e26cc69d7
select id::text
from content_requests
where status = 'processing'
  and updated_at < $1
order by updated_at asc
limit 500;
`
